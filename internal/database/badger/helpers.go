// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/dgraph-io/badger/v3"
)

// makePrefixedKey returns a new slice holding the prefix followed by
// the key. It never shares memory with the prefix given.
func makePrefixedKey(prefix, key []byte) (prefixedKey []byte) {
	prefixedKey = make([]byte, len(prefix)+len(key))
	n := copy(prefixedKey, prefix)
	copy(prefixedKey[n:], key)
	return prefixedKey
}

// transformError converts a badger error to the database package
// error it stands for, and returns other errors unchanged.
// The key given is added to key not found errors.
func transformError(badgerErr error, key []byte) (err error) {
	switch {
	case badgerErr == nil:
		return nil
	case errors.Is(badgerErr, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: 0x%x", database.ErrKeyNotFound, key)
	case errors.Is(badgerErr, badger.ErrDBClosed):
		return fmt.Errorf("%w", database.ErrClosed)
	default:
		return badgerErr
	}
}
