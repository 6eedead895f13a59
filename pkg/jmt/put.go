// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

// KeyValue is an update of the value at a key hash.
// A nil value deletes the key.
type KeyValue struct {
	Key   common.Hash
	Value []byte
}

// PutBatch applies the updates given to the tree with the root given,
// as one commit at the version given. It returns the new root hash and
// the change set of the nodes created and retired. Nothing is written:
// the caller persists the change set node batch. Updates are
// de-duplicated by key, the last update winning, so the result does not
// depend on their order.
func (t *Tree) PutBatch(root common.Hash, version uint64, entries []KeyValue) (
	newRoot common.Hash, changeSet *ChangeSet, err error) {
	entries = sortEntries(entries)
	changeSet = NewChangeSet()

	var rootNode node.Node = node.Null{}
	if root != common.EmptyHash {
		rootNode, err = t.reader.GetNode(root)
		if err != nil {
			return common.EmptyHash, nil, fmt.Errorf("getting root node: %w", err)
		}
	}

	u := &updater{
		reader:    t.reader,
		version:   version,
		changeSet: changeSet,
	}
	// The version of the commit which created the root is unknown, so a
	// root leaf moved under a new internal node gets the current version.
	newRootChild, changed, err := u.update(rootNode, version, nibble.New(), entries)
	if err != nil {
		return common.EmptyHash, nil, err
	}

	if !changed {
		t.logger.Tracef("batch of %d entries leaves root %s unchanged", len(entries), root.Short())
		return root, changeSet, nil
	}

	if rootNode.Kind() == node.KindNull {
		changeSet.markStale(version, rootNode)
	}

	if newRootChild == nil {
		changeSet.putNode(node.Null{})
		newRoot = common.EmptyHash
	} else {
		newRoot = newRootChild.Hash
	}

	t.metrics.ChangeSetComputed(changeSet)
	t.logger.Debugf("version %d: root %s -> %s with %d new nodes and %d stale nodes",
		version, root.Short(), newRoot.Short(), len(changeSet.NodeBatch), len(changeSet.StaleNodeIndexBatch))
	return newRoot, changeSet, nil
}

// sortEntries returns the entries de-duplicated by key, keeping the
// last entry for each key, and sorted by key.
func sortEntries(entries []KeyValue) (sorted []KeyValue) {
	keyToIndex := make(map[common.Hash]int, len(entries))
	sorted = make([]KeyValue, 0, len(entries))
	for _, entry := range entries {
		index, has := keyToIndex[entry.Key]
		if has {
			sorted[index] = entry
			continue
		}
		keyToIndex[entry.Key] = len(sorted)
		sorted = append(sorted, entry)
	}

	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key[:], sorted[j].Key[:]) < 0
	})
	return sorted
}

// groupByNibble calls the function given for each group of sorted
// entries sharing the same nibble at the depth given.
func groupByNibble(entries []KeyValue, depth int,
	fn func(nibble uint8, group []KeyValue) error) error {
	for start := 0; start < len(entries); {
		nib := entries[start].Key.NibbleAt(depth)
		end := start + 1
		for end < len(entries) && entries[end].Key.NibbleAt(depth) == nib {
			end++
		}
		err := fn(nib, entries[start:end])
		if err != nil {
			return err
		}
		start = end
	}
	return nil
}

// updater applies a sorted batch of entries to a tree, recording
// new and stale nodes in its change set.
type updater struct {
	reader    NodeReader
	version   uint64
	changeSet *ChangeSet
}

// keptLeaf is an existing leaf which is part of the updated tree as is.
type keptLeaf struct {
	leaf    *node.Leaf
	version uint64
}

// update applies the entries to the subtree rooted at the node given,
// which sits at the path given. It returns the child reference to the
// updated subtree, nil if the subtree is now empty, and whether the
// subtree changed. Unchanged subtrees return a nil child reference.
func (u *updater) update(n node.Node, version uint64, path nibble.Path, entries []KeyValue) (
	child *node.Child, changed bool, err error) {
	switch n := n.(type) {
	case node.Null:
		child = u.create(path.Len(), liveEntries(entries), nil)
		return child, child != nil, nil
	case *node.Leaf:
		child, changed = u.updateLeaf(n, version, path.Len(), entries)
		return child, changed, nil
	case *node.Internal:
		return u.updateInternal(n, version, path, entries)
	default:
		panic(fmt.Sprintf("node type %T not implemented", n))
	}
}

func liveEntries(entries []KeyValue) (live []KeyValue) {
	live = make([]KeyValue, 0, len(entries))
	for _, entry := range entries {
		if entry.Value != nil {
			live = append(live, entry)
		}
	}
	return live
}

func (u *updater) updateLeaf(leaf *node.Leaf, version uint64, depth int,
	entries []KeyValue) (child *node.Child, changed bool) {
	leafKept := true
	live := make([]KeyValue, 0, len(entries)+1)
	for _, entry := range entries {
		if entry.Key == leaf.KeyHash {
			if entry.Value != nil && bytes.Equal(entry.Value, leaf.Value) {
				continue
			}
			leafKept = false
		}
		if entry.Value != nil {
			live = append(live, entry)
		}
	}

	if !leafKept {
		u.changeSet.markStale(u.version, leaf)
		return u.create(depth, live, nil), true
	}

	if len(live) == 0 {
		return nil, false
	}

	live = append(live, KeyValue{Key: leaf.KeyHash, Value: leaf.Value})
	sort.Slice(live, func(i, j int) bool {
		return bytes.Compare(live[i].Key[:], live[j].Key[:]) < 0
	})
	kept := &keptLeaf{leaf: leaf, version: version}
	return u.create(depth, live, kept), true
}

// create builds the subtree holding the sorted live entries given, with its
// root at the depth given. A kept leaf matching one of the entries is
// reused as is. It returns nil if there is no entry.
func (u *updater) create(depth int, entries []KeyValue, kept *keptLeaf) *node.Child {
	switch len(entries) {
	case 0:
		return nil
	case 1:
		entry := entries[0]
		if kept != nil && kept.leaf.KeyHash == entry.Key {
			return &node.Child{Hash: kept.leaf.Hash(), IsLeaf: true, Version: kept.version}
		}
		value := make([]byte, len(entry.Value))
		copy(value, entry.Value)
		leaf := node.NewLeaf(entry.Key, value)
		u.changeSet.putNode(leaf)
		return &node.Child{Hash: leaf.Hash(), IsLeaf: true, Version: u.version}
	}

	internal := new(node.Internal)
	_ = groupByNibble(entries, depth, func(nib uint8, group []KeyValue) error {
		internal.Children[nib] = u.create(depth+1, group, kept)
		return nil
	})
	u.changeSet.putNode(internal)
	return &node.Child{Hash: internal.Hash(), Version: u.version}
}

func (u *updater) updateInternal(internal *node.Internal, version uint64, path nibble.Path,
	entries []KeyValue) (child *node.Child, changed bool, err error) {
	depth := path.Len()
	if depth >= nibble.MaxLen {
		return nil, false, fmt.Errorf("%w: internal node at path %s", ErrMaxDepthExceeded, path)
	}

	updated := internal.Copy()
	err = groupByNibble(entries, depth, func(nib uint8, group []KeyValue) error {
		existing := internal.Children[nib]
		if existing == nil {
			newChild := u.create(depth+1, liveEntries(group), nil)
			if newChild != nil {
				updated.Children[nib] = newChild
				changed = true
			}
			return nil
		}

		childPath := path.Child(nib)
		childNode, err := u.reader.GetNode(existing.Hash)
		if err != nil {
			return fmt.Errorf("getting child node at path %s: %w", childPath, err)
		}

		newChild, childChanged, err := u.update(childNode, existing.Version, childPath, group)
		if err != nil {
			return err
		}
		if childChanged {
			updated.Children[nib] = newChild
			changed = true
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !changed {
		return nil, false, nil
	}

	u.changeSet.markStale(u.version, internal)

	switch updated.NumChildren() {
	case 0:
		return nil, true, nil
	case 1:
		for _, onlyChild := range updated.Children {
			if onlyChild != nil && onlyChild.IsLeaf {
				return onlyChild, true, nil
			}
		}
	}

	u.changeSet.putNode(updated)
	return &node.Child{Hash: updated.Hash(), Version: u.version}, true, nil
}
