// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"encoding/binary"
	"testing"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/stretchr/testify/require"
)

func newTestTree() (tree *Tree, store *MemoryStore) {
	store = NewMemoryStore()
	return New(NewStoreReader(store)), store
}

// putAndCommit applies the entries to the root and writes the
// resulting change set node batch to the store.
func putAndCommit(t *testing.T, tree *Tree, store NodeStore,
	root common.Hash, version uint64, entries ...KeyValue) (newRoot common.Hash) {
	t.Helper()

	newRoot, changeSet, err := tree.PutBatch(root, version, entries)
	require.NoError(t, err)
	err = store.PutBatch(changeSet.Encode())
	require.NoError(t, err)
	return newRoot
}

// makeKey returns a key hash derived from the integer given.
func makeKey(i int) common.Hash {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return common.MustBlake2bHash(b)
}

// updateNibble returns a copy of the key with its nth nibble set.
func updateNibble(key common.Hash, n int, nibble uint8) common.Hash {
	if n%2 == 0 {
		key[n/2] = key[n/2]&0x0f | nibble<<4
	} else {
		key[n/2] = key[n/2]&0xf0 | nibble
	}
	return key
}

func makeEntries(n int) (entries []KeyValue) {
	entries = make([]KeyValue, n)
	for i := range entries {
		entries[i] = KeyValue{
			Key:   makeKey(i),
			Value: []byte{byte(i), byte(i >> 8), 0xff},
		}
	}
	return entries
}
