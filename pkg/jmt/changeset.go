// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

// StaleNodeIndex records that a node is no longer referenced
// by roots created from the version given onward.
type StaleNodeIndex struct {
	StaleSinceVersion uint64
	NodeHash          common.Hash
}

// ChangeSet is the set of nodes created and the set of nodes
// retired by one or more tree updates.
type ChangeSet struct {
	NodeBatch           map[common.Hash]node.Node
	StaleNodeIndexBatch map[common.Hash]StaleNodeIndex
	NumNewLeaves        int
	NumStaleLeaves      int

	// staleLeaves is the subset of stale node hashes which are leaves.
	staleLeaves map[common.Hash]struct{}
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		NodeBatch:           make(map[common.Hash]node.Node),
		StaleNodeIndexBatch: make(map[common.Hash]StaleNodeIndex),
		staleLeaves:         make(map[common.Hash]struct{}),
	}
}

// IsEmpty returns true if the change set holds no node and no stale index.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.NodeBatch) == 0 && len(cs.StaleNodeIndexBatch) == 0
}

func (cs *ChangeSet) putNode(n node.Node) {
	hash := n.Hash()
	if _, has := cs.NodeBatch[hash]; has {
		return
	}
	cs.NodeBatch[hash] = n
	if n.Kind() == node.KindLeaf {
		cs.NumNewLeaves++
	}
}

func (cs *ChangeSet) markStale(version uint64, n node.Node) {
	hash := n.Hash()
	if _, has := cs.StaleNodeIndexBatch[hash]; has {
		return
	}
	cs.StaleNodeIndexBatch[hash] = StaleNodeIndex{
		StaleSinceVersion: version,
		NodeHash:          hash,
	}
	if n.Kind() == node.KindLeaf {
		cs.staleLeaves[hash] = struct{}{}
		cs.NumStaleLeaves++
	}
}

// Merge folds a change set produced after the receiver into the receiver.
// A node retired by next that is still pending in the receiver node batch
// is dropped from the batch instead of being recorded as stale, and a node
// created by next which is pending as stale in the receiver is no longer
// stale.
func (cs *ChangeSet) Merge(next *ChangeSet) {
	for hash, staleIndex := range next.StaleNodeIndexBatch {
		if pending, has := cs.NodeBatch[hash]; has {
			delete(cs.NodeBatch, hash)
			if pending.Kind() == node.KindLeaf {
				cs.NumNewLeaves--
			}
			continue
		}

		if _, has := cs.StaleNodeIndexBatch[hash]; has {
			continue
		}
		cs.StaleNodeIndexBatch[hash] = staleIndex
		if _, isLeaf := next.staleLeaves[hash]; isLeaf {
			cs.staleLeaves[hash] = struct{}{}
			cs.NumStaleLeaves++
		}
	}

	for hash, n := range next.NodeBatch {
		if _, has := cs.StaleNodeIndexBatch[hash]; has {
			delete(cs.StaleNodeIndexBatch, hash)
			if _, isLeaf := cs.staleLeaves[hash]; isLeaf {
				delete(cs.staleLeaves, hash)
				cs.NumStaleLeaves--
			}
			continue
		}
		cs.putNode(n)
	}
}

// Encode returns the encoding of each node of the node batch, keyed by node hash.
func (cs *ChangeSet) Encode() (encodings map[common.Hash][]byte) {
	encodings = make(map[common.Hash][]byte, len(cs.NodeBatch))
	for hash, n := range cs.NodeBatch {
		encodings[hash] = node.Encode(n)
	}
	return encodings
}

// InsertedNodeHashes returns the set of node hashes of the node batch.
func (cs *ChangeSet) InsertedNodeHashes() (hashes map[common.Hash]struct{}) {
	hashes = make(map[common.Hash]struct{}, len(cs.NodeBatch))
	for hash := range cs.NodeBatch {
		hashes[hash] = struct{}{}
	}
	return hashes
}

// StaleNodeHashes returns the set of stale node hashes.
func (cs *ChangeSet) StaleNodeHashes() (hashes map[common.Hash]struct{}) {
	hashes = make(map[common.Hash]struct{}, len(cs.StaleNodeIndexBatch))
	for hash := range cs.StaleNodeIndexBatch {
		hashes[hash] = struct{}{}
	}
	return hashes
}

// DeepCopy returns a copy of the change set. Nodes are immutable
// and are shared with the copy.
func (cs *ChangeSet) DeepCopy() (copied *ChangeSet) {
	if cs == nil {
		return nil
	}
	copied = &ChangeSet{
		NodeBatch:           make(map[common.Hash]node.Node, len(cs.NodeBatch)),
		StaleNodeIndexBatch: make(map[common.Hash]StaleNodeIndex, len(cs.StaleNodeIndexBatch)),
		NumNewLeaves:        cs.NumNewLeaves,
		NumStaleLeaves:      cs.NumStaleLeaves,
		staleLeaves:         make(map[common.Hash]struct{}, len(cs.staleLeaves)),
	}
	for hash, n := range cs.NodeBatch {
		copied.NodeBatch[hash] = n
	}
	for hash, index := range cs.StaleNodeIndexBatch {
		copied.StaleNodeIndexBatch[hash] = index
	}
	for hash := range cs.staleLeaves {
		copied.staleLeaves[hash] = struct{}{}
	}
	return copied
}
