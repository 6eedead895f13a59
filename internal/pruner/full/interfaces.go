// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package full

import "github.com/ChainSafe/jellyfish/internal/database"

// JournalDatabase is the database used to store the journal data.
type JournalDatabase interface {
	Getter
	NewWriteBatch() database.WriteBatch
}

// NodeDatabase is the database holding the tree nodes keyed by hash.
type NodeDatabase interface {
	NewWriteBatch() database.WriteBatch
}

// Getter gets a value corresponding to the given key.
type Getter interface {
	Get(key []byte) (value []byte, err error)
}

// Setter sets a value at the given key.
type Setter interface {
	Set(key, value []byte) error
}

// SetDeleter sets or deletes a value at the given key.
type SetDeleter interface {
	Setter
	Delete(key []byte) error
}

// Logger logs formatted strings at the different log levels.
type Logger interface {
	Debug(s string)
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
}
