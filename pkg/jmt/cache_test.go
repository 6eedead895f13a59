// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	NoopMetrics
	hits   atomic.Int64
	misses atomic.Int64
}

func (m *countingMetrics) CacheHit()  { m.hits.Add(1) }
func (m *countingMetrics) CacheMiss() { m.misses.Add(1) }

func Test_CachedReader_GetNode(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	leaf := node.NewLeaf(common.Hash{1}, []byte{1})
	parent := NewMockNodeReader(ctrl)
	parent.EXPECT().GetNode(leaf.Hash()).Return(leaf, nil)

	metrics := new(countingMetrics)
	reader, err := NewCachedReader(parent, 100, metrics)
	require.NoError(t, err)
	t.Cleanup(reader.Close)

	n, err := reader.GetNode(leaf.Hash())
	require.NoError(t, err)
	assert.Equal(t, leaf, n)

	reader.Wait()

	n, err = reader.GetNode(leaf.Hash())
	require.NoError(t, err)
	assert.Equal(t, leaf, n)

	assert.Equal(t, int64(1), metrics.hits.Load())
	assert.Equal(t, int64(1), metrics.misses.Load())
}

func Test_CachedReader_GetNode_error(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	hash := common.Hash{1}
	errTest := errors.New("test error")
	parent := NewMockNodeReader(ctrl)
	parent.EXPECT().GetNode(hash).Return(nil, errTest).Times(2)

	reader, err := NewCachedReader(parent, 100, nil)
	require.NoError(t, err)
	t.Cleanup(reader.Close)

	for i := 0; i < 2; i++ {
		n, err := reader.GetNode(hash)
		assert.ErrorIs(t, err, errTest)
		assert.Nil(t, n)
		reader.Wait()
	}
}

func Test_CachedReader_tree(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	reader, err := NewCachedReader(NewStoreReader(store), 1000, nil)
	require.NoError(t, err)
	t.Cleanup(reader.Close)

	tree := New(reader)
	entries := makeEntries(50)
	root := putAndCommit(t, tree, store, common.EmptyHash, 1, entries...)

	for _, entry := range entries {
		value, err := tree.Get(root, entry.Key)
		require.NoError(t, err)
		assert.Equal(t, entry.Value, value)
	}
}
