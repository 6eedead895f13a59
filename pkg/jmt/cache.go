// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
	"github.com/dgraph-io/ristretto"
)

// CachedReader is a NodeReader caching decoded nodes of a parent reader.
// Nodes never change for a given hash, so cached entries never go stale.
type CachedReader struct {
	parent  NodeReader
	cache   *ristretto.Cache
	metrics Metrics
}

// NewCachedReader returns a reader caching up to maxNodes nodes
// read from the parent reader given.
func NewCachedReader(parent NodeReader, maxNodes int64, metrics Metrics) (
	reader *CachedReader, err error) {
	if metrics == nil {
		metrics = NoopMetrics{}
	}

	const countersPerItem = 10
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: countersPerItem * maxNodes,
		MaxCost:     maxNodes,
		BufferItems: 64,
		KeyToHash: func(key interface{}) (uint64, uint64) {
			hash := key.(common.Hash)
			return common.Twox128(hash[:])
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating node cache: %w", err)
	}

	return &CachedReader{
		parent:  parent,
		cache:   cache,
		metrics: metrics,
	}, nil
}

// GetNode returns the cached node for the hash given, or reads it from
// the parent reader and caches it.
func (r *CachedReader) GetNode(hash common.Hash) (n node.Node, err error) {
	value, found := r.cache.Get(hash)
	if found {
		r.metrics.CacheHit()
		return value.(node.Node), nil
	}
	r.metrics.CacheMiss()

	n, err = r.parent.GetNode(hash)
	if err != nil {
		return nil, err
	}

	const cost = 1
	r.cache.Set(hash, n, cost)
	return n, nil
}

// Wait blocks until all the buffered cache writes are applied.
func (r *CachedReader) Wait() {
	r.cache.Wait()
}

// Close stops the cache goroutines.
func (r *CachedReader) Close() {
	r.cache.Close()
}
