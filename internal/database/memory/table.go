// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package memory

import (
	"context"

	"github.com/ChainSafe/jellyfish/internal/database"
)

type table struct {
	prefix   string
	database *Database
}

func newTable(prefix string, database *Database) *table {
	return &table{
		prefix:   prefix,
		database: database,
	}
}

// Get retrieves a value from the database using the given key
// prefixed with the table prefix.
// It returns the wrapped error `database.ErrKeyNotFound` if the
// prefixed key is not found.
func (t *table) Get(key []byte) (value []byte, err error) {
	return t.database.Get([]byte(t.prefix + string(key)))
}

// Set sets a value at the given key prefixed with the table prefix
// in the database.
func (t *table) Set(key, value []byte) (err error) {
	return t.database.Set([]byte(t.prefix+string(key)), value)
}

// Delete deletes the given key prefixed with the table prefix
// from the database. If the key is not found, no error is returned.
func (t *table) Delete(key []byte) (err error) {
	return t.database.Delete([]byte(t.prefix + string(key)))
}

// NewWriteBatch returns a new write batch for the database,
// using the table prefix to prefix all keys.
func (t *table) NewWriteBatch() (writeBatch database.WriteBatch) {
	return newWriteBatch(t.prefix, t.database)
}

// Stream streams the key value pairs of the table, with
// keys stripped of the table prefix.
func (t *table) Stream(ctx context.Context, chooseKey func(key []byte) bool,
	handle func(key, value []byte) error) (err error) {
	prefixLength := len(t.prefix)
	return t.database.Stream(ctx, []byte(t.prefix),
		func(key []byte) bool {
			return chooseKey(key[prefixLength:])
		},
		func(key, value []byte) error {
			return handle(key[prefixLength:], value)
		})
}
