// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pebble

import (
	"errors"
)

// ErrPathEmpty is returned when the path of an on disk database is empty.
var ErrPathEmpty = errors.New("path is empty")

// Settings is the pebble database settings.
type Settings struct {
	// Path is the database directory path, or only a
	// name for an in-memory database, defaulting to "memory".
	Path string
	// InMemory is whether to keep the database in memory.
	InMemory bool
	// SyncWrites is whether writes are synced to disk before
	// returning. It defaults to true if left unset.
	SyncWrites *bool
}

// SetDefaults sets the default values on the settings.
func (s *Settings) SetDefaults() {
	if s.InMemory && s.Path == "" {
		s.Path = "memory"
	}

	if s.SyncWrites == nil {
		syncWrites := true
		s.SyncWrites = &syncWrites
	}
}

// Validate validates the settings.
func (s Settings) Validate() (err error) {
	if !s.InMemory && s.Path == "" {
		return ErrPathEmpty
	}
	return nil
}
