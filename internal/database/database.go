// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package database defines the key value database interfaces
// implemented by the memory, badger and pebble sub-packages.
package database

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when a key is not found in the database.
	ErrKeyNotFound = errors.New("key not found")
	// ErrClosed is returned when an operation is done on a closed database.
	ErrClosed = errors.New("database is closed")
)

// Reader reads values from the database.
type Reader interface {
	// Get returns the value at the key given, or an error
	// wrapping ErrKeyNotFound if the key is not found.
	Get(key []byte) (value []byte, err error)
}

// Writer writes values to the database.
type Writer interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// WriteBatch buffers writes to be flushed atomically to the database.
type WriteBatch interface {
	Writer
	Flush() error
	Cancel()
}

// Table is a view of the database where all keys are prefixed.
type Table interface {
	Reader
	Writer
	NewWriteBatch() (writeBatch WriteBatch)
	// Stream calls handle for each key value pair of the table
	// for which chooseKey returns true. Keys given to both functions
	// are stripped of the table prefix.
	Stream(ctx context.Context, chooseKey func(key []byte) bool,
		handle func(key, value []byte) error) error
}

// Database is the key value database. All its methods
// are safe for concurrent use.
type Database interface {
	Reader
	Writer
	NewWriteBatch() (writeBatch WriteBatch)
	NewTable(prefix string) (dbTable Table)
	// Stream calls handle for each key value pair with the prefix
	// given and for which chooseKey returns true.
	Stream(ctx context.Context, prefix []byte, chooseKey func(key []byte) bool,
		handle func(key, value []byte) error) error
	Close() error
	DropAll() error
}
