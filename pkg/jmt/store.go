// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

// NodeStore persists encoded nodes keyed by node hash.
// Implementations must be safe for concurrent use.
type NodeStore interface {
	// Get returns the encoded node for the hash given,
	// or nil with no error if the node is absent.
	Get(hash common.Hash) (encoding []byte, err error)
	// PutBatch writes all the encoded nodes given atomically:
	// either all of them are written or none is.
	PutBatch(batch map[common.Hash][]byte) error
}

// NodeReader reads decoded nodes by hash.
type NodeReader interface {
	// GetNode returns the node for the hash given, or an error
	// wrapping ErrNodeNotFound if it is missing.
	GetNode(hash common.Hash) (node.Node, error)
}

// StoreReader is a NodeReader decoding nodes read from a NodeStore.
type StoreReader struct {
	store NodeStore
}

// NewStoreReader returns a node reader for the node store given.
func NewStoreReader(store NodeStore) *StoreReader {
	return &StoreReader{store: store}
}

// GetNode reads and decodes the node with the hash given.
func (r *StoreReader) GetNode(hash common.Hash) (n node.Node, err error) {
	encoding, err := r.store.Get(hash)
	if err != nil {
		return nil, fmt.Errorf("getting node %s from store: %w", hash, err)
	} else if encoding == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, hash)
	}

	n, err = node.Decode(encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding node %s: %w", hash, err)
	}
	return n, nil
}

// ChangeSetReader reads nodes from the node batch of a change set
// and falls back on a parent reader for the other nodes.
// It is not safe for concurrent use with changes to the change set.
type ChangeSetReader struct {
	changeSet *ChangeSet
	parent    NodeReader
}

// NewChangeSetReader returns a reader overlaying the change set given
// on top of the parent reader given.
func NewChangeSetReader(changeSet *ChangeSet, parent NodeReader) *ChangeSetReader {
	return &ChangeSetReader{
		changeSet: changeSet,
		parent:    parent,
	}
}

// GetNode returns the pending node for the hash given if it exists,
// and otherwise reads it from the parent reader.
func (r *ChangeSetReader) GetNode(hash common.Hash) (n node.Node, err error) {
	n, ok := r.changeSet.NodeBatch[hash]
	if ok {
		return n, nil
	}
	return r.parent.GetNode(hash)
}

// MemoryStore is a NodeStore keeping encoded nodes in memory.
type MemoryStore struct {
	nodes map[common.Hash][]byte
	mutex sync.RWMutex
}

// NewMemoryStore returns an empty in memory node store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[common.Hash][]byte),
	}
}

// Get returns a copy of the encoded node or nil if it is absent.
func (s *MemoryStore) Get(hash common.Hash) (encoding []byte, err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stored, ok := s.nodes[hash]
	if !ok {
		return nil, nil
	}
	encoding = make([]byte, len(stored))
	copy(encoding, stored)
	return encoding, nil
}

// PutBatch stores copies of all the encoded nodes given.
func (s *MemoryStore) PutBatch(batch map[common.Hash][]byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for hash, encoding := range batch {
		stored := make([]byte, len(encoding))
		copy(stored, encoding)
		s.nodes[hash] = stored
	}
	return nil
}

// Delete removes the nodes with the hashes given.
func (s *MemoryStore) Delete(hashes ...common.Hash) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, hash := range hashes {
		delete(s.nodes, hash)
	}
}

// Len returns the number of nodes stored.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.nodes)
}
