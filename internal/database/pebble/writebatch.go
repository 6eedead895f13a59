// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pebble

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

type writeBatch struct {
	prefix       []byte
	batch        *pebble.Batch
	writeOptions *pebble.WriteOptions
}

func newWriteBatch(prefix []byte, batch *pebble.Batch,
	writeOptions *pebble.WriteOptions) *writeBatch {
	return &writeBatch{
		prefix:       prefix,
		batch:        batch,
		writeOptions: writeOptions,
	}
}

func (wb *writeBatch) Set(key, value []byte) error {
	err := wb.batch.Set(makePrefixedKey(wb.prefix, key), value, nil)
	if err != nil {
		return fmt.Errorf("setting to batch writer: %w", err)
	}
	return nil
}

func (wb *writeBatch) Delete(key []byte) error {
	err := wb.batch.Delete(makePrefixedKey(wb.prefix, key), nil)
	if err != nil {
		return fmt.Errorf("setting to batch delete: %w", err)
	}
	return nil
}

// Flush commits the batch to the database and resets it.
func (wb *writeBatch) Flush() error {
	err := wb.batch.Commit(wb.writeOptions)
	if err != nil {
		return fmt.Errorf("committing batch: %w", transformError(err))
	}
	wb.batch.Reset()
	return nil
}

// Cancel discards the batch operations.
func (wb *writeBatch) Cancel() {
	wb.batch.Reset()
}
