// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import "errors"

var (
	// ErrNodeNotFound is returned when a node referenced by the tree
	// is missing from the node store.
	ErrNodeNotFound = errors.New("node not found")
	// ErrWrite is returned when a node batch fails to be persisted.
	ErrWrite = errors.New("writing node batch")
	// ErrMaxDepthExceeded is returned when a walk goes deeper than the
	// number of nibbles of a key hash, which only happens on corrupt data.
	ErrMaxDepthExceeded = errors.New("maximum tree depth exceeded")
)
