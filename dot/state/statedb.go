// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"fmt"
	"sync"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
)

// StateDB holds the current root of a Jellyfish Merkle tree and
// buffers the change sets of its puts until they are committed to
// its node store. Several state databases can share the same node
// store, each one tracking its own fork of the state.
type StateDB struct {
	store       jmt.NodeStore
	reader      jmt.NodeReader
	treeOptions []jmt.Option

	root    common.Hash
	version uint64
	// pending is the change set accumulated since the last commit.
	pending *jmt.ChangeSet
	mutex   sync.RWMutex
}

// Option is a functional option for the state database.
type Option func(s *StateDB)

// WithNodeReader sets the reader used to read committed nodes,
// for example a cached reader. It defaults to a reader decoding
// nodes from the node store.
func WithNodeReader(reader jmt.NodeReader) Option {
	return func(s *StateDB) {
		s.reader = reader
	}
}

// WithTreeOptions sets options for the tree engine.
func WithTreeOptions(options ...jmt.Option) Option {
	return func(s *StateDB) {
		s.treeOptions = append(s.treeOptions, options...)
	}
}

// NewStateDB creates a state database at the root and version given,
// reading and writing nodes to the node store given. Use the empty
// hash as root for an empty state.
func NewStateDB(store jmt.NodeStore, root common.Hash, version uint64,
	options ...Option) *StateDB {
	s := &StateDB{
		store:   store,
		root:    root,
		version: version,
		pending: jmt.NewChangeSet(),
	}
	for _, option := range options {
		option(s)
	}
	if s.reader == nil {
		s.reader = jmt.NewStoreReader(store)
	}
	return s
}

// tree returns a tree engine reading the pending nodes first.
// It must be called with the mutex held.
func (s *StateDB) tree() *jmt.Tree {
	return jmt.New(jmt.NewChangeSetReader(s.pending, s.reader), s.treeOptions...)
}

// Put applies the entries given as one commit on top of the current root,
// buffers the resulting change set and advances the current root and version.
// An entry with a nil value deletes its key. If an error is returned,
// the state database is left unchanged.
func (s *StateDB) Put(entries []jmt.KeyValue) (newRoot common.Hash, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	version := s.version + 1
	newRoot, changeSet, err := s.tree().PutBatch(s.root, version, entries)
	if err != nil {
		return common.EmptyHash, fmt.Errorf("putting batch at version %d: %w", version, err)
	}

	s.pending.Merge(changeSet)
	s.root = newRoot
	s.version = version
	return newRoot, nil
}

// Get returns the value at the key given in the current state,
// or nil if the key is absent.
func (s *StateDB) Get(key common.Hash) (value []byte, err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.tree().Get(s.root, key)
}

// GetAt returns the value at the key given in the state with the
// root given, or nil if the key is absent.
func (s *StateDB) GetAt(root, key common.Hash) (value []byte, err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.tree().Get(root, key)
}

// GetProof returns the value at the key given in the current state
// together with a proof of its inclusion, or of its absence if the
// value returned is nil.
func (s *StateDB) GetProof(key common.Hash) (value []byte, proof *jmt.Proof, err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.tree().GetWithProof(s.root, key)
}

// GetProofAt is like GetProof for the state with the root given.
func (s *StateDB) GetProofAt(root, key common.Hash) (value []byte, proof *jmt.Proof, err error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.tree().GetWithProof(root, key)
}

// RootHash returns the current root hash.
func (s *StateDB) RootHash() common.Hash {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.root
}

// Version returns the version of the current root.
func (s *StateDB) Version() uint64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.version
}

// LastChangeSet returns the current root together with a copy of
// the change set accumulated since the last commit. It is the change
// set of the last put if the state database is committed after each put.
func (s *StateDB) LastChangeSet() (root common.Hash, changeSet *jmt.ChangeSet) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.root, s.pending.DeepCopy()
}

// Commit writes the pending nodes to the node store in one batch and
// returns the change set committed. If the write fails, the returned
// error wraps jmt.ErrWrite and the pending change set is kept so the
// commit can be retried.
func (s *StateDB) Commit() (committed *jmt.ChangeSet, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err = s.store.PutBatch(s.pending.Encode())
	if err != nil {
		return nil, fmt.Errorf("%w: %d nodes for root %s: %w",
			jmt.ErrWrite, len(s.pending.NodeBatch), s.root, err)
	}

	logger.Debugf("committed %d nodes for root %s at version %d",
		len(s.pending.NodeBatch), s.root.Short(), s.version)
	committed = s.pending
	s.pending = jmt.NewChangeSet()
	return committed, nil
}

// Fork returns a new state database at the root and version given,
// sharing the node store and options of this state database.
// The root given must be committed to the node store.
func (s *StateDB) Fork(root common.Hash, version uint64) *StateDB {
	return &StateDB{
		store:       s.store,
		reader:      s.reader,
		treeOptions: s.treeOptions,
		root:        root,
		version:     version,
		pending:     jmt.NewChangeSet(),
	}
}
