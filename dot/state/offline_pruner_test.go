// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"context"
	"testing"

	"github.com/ChainSafe/jellyfish/internal/database/memory"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OfflinePruner(t *testing.T) {
	t.Parallel()

	storage := NewNodeStorage(memory.New())
	stateDB := NewStateDB(storage, common.EmptyHash, 0)

	keyA := fixtureKey(1, 2)
	keyB := fixtureKey(2, 2)
	oldRoot, err := stateDB.Put([]jmt.KeyValue{
		{Key: keyA, Value: []byte{1}},
		{Key: keyB, Value: []byte{2}},
	})
	require.NoError(t, err)
	_, err = stateDB.Commit()
	require.NoError(t, err)

	root, err := stateDB.Put([]jmt.KeyValue{{Key: keyA, Value: []byte{3}}})
	require.NoError(t, err)
	_, err = stateDB.Commit()
	require.NoError(t, err)

	pruner, err := NewOfflinePruner(storage, []common.Hash{root}, 1)
	require.NoError(t, err)

	ctx := context.Background()
	err = pruner.SetBloomFilter(ctx)
	require.NoError(t, err)

	deleted, err := pruner.Prune(ctx)
	require.NoError(t, err)
	// the old leaf of key A and the old root are deleted
	assert.Equal(t, 2, deleted)

	encoding, err := storage.Get(oldRoot)
	require.NoError(t, err)
	assert.Nil(t, encoding)

	for key, expectedValue := range map[common.Hash][]byte{
		keyA: {3},
		keyB: {2},
	} {
		value, err := stateDB.Get(key)
		require.NoError(t, err)
		assert.Equal(t, expectedValue, value)
	}
}

func Test_OfflinePruner_SetBloomFilter_canceled(t *testing.T) {
	t.Parallel()

	storage := NewNodeStorage(memory.New())
	stateDB := NewStateDB(storage, common.EmptyHash, 0)
	root, err := stateDB.Put([]jmt.KeyValue{{Key: fixtureKey(1, 2), Value: []byte{1}}})
	require.NoError(t, err)
	_, err = stateDB.Commit()
	require.NoError(t, err)

	pruner, err := NewOfflinePruner(storage, []common.Hash{root}, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = pruner.SetBloomFilter(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualError(t, err, "walking nodes of root "+root.String()+": context canceled")
}
