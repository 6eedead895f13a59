// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package badger provides a database implementation using badger v3.
package badger

import (
	"context"
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	badger "github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/ristretto/z"
)

var _ database.Database = (*Database)(nil)

// Database is database implementation using a badger/v3 database.
type Database struct {
	badgerDatabase *badger.DB
}

// New returns a new database based on a badger v3 database.
func New(settings Settings) (database *Database, err error) {
	settings.SetDefaults()
	err = settings.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	path := settings.Path
	if *settings.InMemory {
		path = ""
	}
	badgerOptions := badger.DefaultOptions(path)
	badgerOptions = badgerOptions.WithLogger(badgerLogger{})
	badgerOptions = badgerOptions.WithInMemory(*settings.InMemory)
	badgerOptions = badgerOptions.WithSyncWrites(*settings.SyncWrites)
	badgerDatabase, err := badger.Open(badgerOptions)
	if err != nil {
		return nil, fmt.Errorf("opening badger database: %w", err)
	}

	logger.Debugf("opened database at %s (in memory %t, synced writes %t)",
		settings.Path, *settings.InMemory, *settings.SyncWrites)

	return &Database{
		badgerDatabase: badgerDatabase,
	}, nil
}

// Get retrieves a value from the database using the given key.
// It returns the wrapped error `database.ErrKeyNotFound` if the
// key is not found.
func (db *Database) Get(key []byte) (value []byte, err error) {
	err = db.badgerDatabase.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("getting item from transaction: %w", err)
		}

		value, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copying value: %w", err)
		}

		return nil
	})

	err = transformError(err, key)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set sets a value at the given key in the database.
func (db *Database) Set(key, value []byte) (err error) {
	err = db.badgerDatabase.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	return transformError(err, key)
}

// Delete deletes the given key from the database.
// If the key is not found, no error is returned.
func (db *Database) Delete(key []byte) (err error) {
	err = db.badgerDatabase.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	return transformError(err, key)
}

// NewWriteBatch returns a new write batch for the database.
func (db *Database) NewWriteBatch() (writeBatch database.WriteBatch) {
	prefix := []byte(nil)
	badgerWriteBatch := db.badgerDatabase.NewWriteBatch()
	return newWriteBatch(prefix, badgerWriteBatch)
}

// NewTable returns a new table using the database.
// All keys on the table will be prefixed with the given prefix.
func (db *Database) NewTable(prefix string) (dbTable database.Table) {
	return newTable([]byte(prefix), db)
}

// Stream calls handle for each key value pair with the given
// prefix and for which chooseKey returns true. Filtering on the
// prefix is done by badger and is cheaper than using chooseKey.
// It stops with the context error if ctx is canceled.
func (db *Database) Stream(ctx context.Context,
	prefix []byte,
	chooseKey func(key []byte) bool,
	handle func(key, value []byte) error,
) error {
	stream := db.badgerDatabase.NewStream()

	if prefix != nil {
		stream.Prefix = make([]byte, len(prefix))
		copy(stream.Prefix, prefix)
	}

	stream.ChooseKey = func(item *badger.Item) bool {
		return chooseKey(item.Key())
	}

	stream.Send = func(buf *z.Buffer) (err error) {
		kvList, err := badger.BufferToKVList(buf)
		if err != nil {
			return fmt.Errorf("decoding badger proto key value: %w", err)
		}

		for _, keyValue := range kvList.Kv {
			err = ctx.Err()
			if err != nil {
				return err
			}

			err = handle(keyValue.Key, keyValue.Value)
			if err != nil {
				return fmt.Errorf("handling key value: %w", err)
			}
		}
		return nil
	}

	return stream.Orchestrate(ctx)
}

// Close closes the database.
func (db *Database) Close() (err error) {
	err = db.badgerDatabase.Close()
	return transformError(err, nil)
}

// DropAll drops all data from the database.
func (db *Database) DropAll() (err error) {
	err = db.badgerDatabase.DropAll()
	return transformError(err, nil)
}
