// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pebble

import (
	"context"

	"github.com/ChainSafe/jellyfish/internal/database"
)

type table struct {
	prefix   []byte
	database *Database
}

func (t *table) Get(key []byte) ([]byte, error) {
	return t.database.Get(makePrefixedKey(t.prefix, key))
}

func (t *table) Set(key, value []byte) error {
	return t.database.Set(makePrefixedKey(t.prefix, key), value)
}

func (t *table) Delete(key []byte) error {
	return t.database.Delete(makePrefixedKey(t.prefix, key))
}

func (t *table) NewWriteBatch() database.WriteBatch {
	return newWriteBatch(t.prefix, t.database.db.NewBatch(), t.database.writeOptions)
}

func (t *table) Stream(ctx context.Context, chooseKey func(key []byte) bool,
	handle func(key, value []byte) error) error {
	prefixLength := len(t.prefix)
	return t.database.Stream(ctx, t.prefix,
		func(key []byte) bool {
			return chooseKey(key[prefixLength:])
		},
		func(key, value []byte) error {
			return handle(key[prefixLength:], value)
		})
}
