// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"context"

	"github.com/ChainSafe/jellyfish/internal/database"
)

type table struct {
	prefix   []byte
	database *Database
}

func newTable(prefix []byte, database *Database) *table {
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
	return t.database.Get(makePrefixedKey(t.prefix, key))
}

// Set sets a value at the given key prefixed with the table prefix
// in the database.
func (t *table) Set(key, value []byte) (err error) {
	return t.database.Set(makePrefixedKey(t.prefix, key), value)
}

// Delete deletes the given key prefixed with the table prefix
// from the database. If the key is not found, no error is returned.
func (t *table) Delete(key []byte) (err error) {
	return t.database.Delete(makePrefixedKey(t.prefix, key))
}

// NewWriteBatch returns a new write batch for the database,
// using the table prefix to prefix all keys.
func (t *table) NewWriteBatch() (writeBatch database.WriteBatch) {
	badgerWriteBatch := t.database.badgerDatabase.NewWriteBatch()
	return newWriteBatch(t.prefix, badgerWriteBatch)
}

// Stream streams the key value pairs of the table, with
// keys stripped of the table prefix.
func (t *table) Stream(ctx context.Context, chooseKey func(key []byte) bool,
	handle func(key, value []byte) error) (err error) {
	prefixLength := len(t.prefix)
	return t.database.Stream(ctx, t.prefix,
		func(key []byte) bool {
			return chooseKey(key[prefixLength:])
		},
		func(key, value []byte) error {
			return handle(key[prefixLength:], value)
		})
}
