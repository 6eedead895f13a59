// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package pebble provides a database implementation using pebble.
package pebble

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

var logger = log.NewFromGlobal(log.AddContext("database", "pebble"))

var _ database.Database = (*Database)(nil)

// Database is a database implementation using a pebble database.
type Database struct {
	path         string
	db           *pebble.DB
	writeOptions *pebble.WriteOptions
}

// New opens a pebble database with the settings given, creating
// it if needed. For an in-memory database, nothing is written to
// disk and the path is only used as a name.
func New(settings Settings) (*Database, error) {
	settings.SetDefaults()
	err := settings.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating settings: %w", err)
	}

	opts := &pebble.Options{}
	if settings.InMemory {
		opts.FS = vfs.NewMem()
	} else {
		err = os.MkdirAll(settings.Path, os.ModePerm)
		if err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := pebble.Open(settings.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}

	writeOptions := pebble.NoSync
	if *settings.SyncWrites {
		writeOptions = pebble.Sync
	}

	logger.Debugf("opened database at %s with synced writes %t",
		settings.Path, *settings.SyncWrites)

	return &Database{
		path:         settings.Path,
		db:           db,
		writeOptions: writeOptions,
	}, nil
}

// Path returns the database directory path.
func (p *Database) Path() string {
	return p.path
}

// Set sets a value at the given key in the database.
func (p *Database) Set(key, value []byte) error {
	err := p.db.Set(key, value, p.writeOptions)
	if err != nil {
		return fmt.Errorf("writing 0x%x to database: %w", key, transformError(err))
	}
	return nil
}

// Get retrieves a value from the database using the given key.
// It returns the wrapped error `database.ErrKeyNotFound` if the
// key is not found.
func (p *Database) Get(key []byte) (value []byte, err error) {
	value, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, fmt.Errorf("%w: 0x%x", database.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("getting 0x%x from database: %w", key, transformError(err))
	}

	valueCpy := make([]byte, len(value))
	copy(valueCpy, value)

	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("closing after get: %w", err)
	}

	return valueCpy, nil
}

// Delete deletes the given key from the database.
// If the key is not found, no error is returned.
func (p *Database) Delete(key []byte) error {
	err := p.db.Delete(key, p.writeOptions)
	if err != nil {
		return fmt.Errorf("deleting 0x%x from database: %w", key, transformError(err))
	}

	return nil
}

// NewWriteBatch returns a new write batch for the database.
func (p *Database) NewWriteBatch() database.WriteBatch {
	return newWriteBatch(nil, p.db.NewBatch(), p.writeOptions)
}

// NewTable returns a new table using the database.
// All keys on the table will be prefixed with the given prefix.
func (p *Database) NewTable(prefix string) database.Table {
	return &table{
		prefix:   []byte(prefix),
		database: p,
	}
}

// Stream calls handle for each key value pair with the given prefix
// and for which chooseKey returns true, in ascending key order.
// Key and value slices are only valid during the handle call.
func (p *Database) Stream(ctx context.Context, prefix []byte,
	chooseKey func(key []byte) bool,
	handle func(key, value []byte) error) (err error) {
	iterOptions := &pebble.IterOptions{}
	if len(prefix) > 0 {
		iterOptions.LowerBound = prefix
		iterOptions.UpperBound = keyUpperBound(prefix)
	}

	iterator := p.db.NewIter(iterOptions)
	defer func() {
		closeErr := iterator.Close()
		if closeErr != nil {
			logger.Criticalf("while closing iterator: %s", closeErr)
		}
	}()

	for valid := iterator.First(); valid; valid = iterator.Next() {
		err = ctx.Err()
		if err != nil {
			return err
		}

		key := iterator.Key()
		if !chooseKey(key) {
			continue
		}

		err = handle(key, iterator.Value())
		if err != nil {
			return fmt.Errorf("handling key value: %w", err)
		}
	}

	return iterator.Error()
}

// Flush flushes the memtable to disk.
func (p *Database) Flush() error {
	err := p.db.Flush()
	if err != nil {
		return fmt.Errorf("flushing database: %w", err)
	}

	return nil
}

// Close closes the database.
func (p *Database) Close() error {
	return p.db.Close()
}

// DropAll deletes all the keys of the database.
func (p *Database) DropAll() (err error) {
	iterator := p.db.NewIter(nil)
	var first, last []byte
	if iterator.First() {
		first = append(first, iterator.Key()...)
	}
	if iterator.Last() {
		last = append(last, iterator.Key()...)
	}
	err = iterator.Close()
	if err != nil {
		return fmt.Errorf("closing iterator: %w", err)
	}

	if first == nil {
		return nil
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	// the range end is exclusive
	end := append(last, 0)
	err = batch.DeleteRange(first, end, nil)
	if err != nil {
		return fmt.Errorf("deleting range: %w", err)
	}

	err = batch.Commit(p.writeOptions)
	if err != nil {
		return fmt.Errorf("committing batch: %w", transformError(err))
	}
	return nil
}
