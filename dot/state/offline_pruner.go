// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"context"
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

// OfflinePruner deletes all the nodes of the node storage which are
// not reachable from the retained roots. It must not run concurrently
// with any other use of the node storage.
type OfflinePruner struct {
	storage       *NodeStorage
	tree          *jmt.Tree
	retainedRoots []common.Hash
	bloom         *bloomState
}

// NewOfflinePruner creates an offline pruner retaining the nodes of the
// roots given, using a bloom filter of the size given in MiB.
func NewOfflinePruner(storage *NodeStorage, retainedRoots []common.Hash,
	bloomSizeMiB uint64) (pruner *OfflinePruner, err error) {
	bloom, err := newBloomState(bloomSizeMiB)
	if err != nil {
		return nil, err
	}

	return &OfflinePruner{
		storage:       storage,
		tree:          jmt.New(jmt.NewStoreReader(storage)),
		retainedRoots: retainedRoots,
		bloom:         bloom,
	}, nil
}

// SetBloomFilter records in the bloom filter the hashes
// of all the nodes reachable from the retained roots.
func (p *OfflinePruner) SetBloomFilter(ctx context.Context) (err error) {
	p.bloom.put(common.EmptyHash)

	var nodesCount int
	for _, root := range p.retainedRoots {
		err = p.tree.Walk(root, func(_ nibble.Path, hash common.Hash, _ node.Node) error {
			err := ctx.Err()
			if err != nil {
				return err
			}
			p.bloom.put(hash)
			nodesCount++
			return nil
		})
		if err != nil {
			return fmt.Errorf("walking nodes of root %s: %w", root, err)
		}
	}

	logger.Infof("recorded %d nodes of %d retained roots in bloom filter",
		nodesCount, len(p.retainedRoots))
	return nil
}

// Prune deletes the nodes of the storage not recorded in the bloom
// filter. SetBloomFilter must be called before. It returns the
// number of nodes deleted.
func (p *OfflinePruner) Prune(ctx context.Context) (deleted int, err error) {
	writeBatch := p.storage.NewWriteBatch()
	err = p.storage.Stream(ctx, func(hash common.Hash, _ []byte) error {
		if p.bloom.contain(hash) {
			return nil
		}
		deleted++
		return writeBatch.Delete(hash.ToBytes())
	})
	if err != nil {
		writeBatch.Cancel()
		return 0, fmt.Errorf("streaming nodes: %w", err)
	}

	err = writeBatch.Flush()
	if err != nil {
		return 0, fmt.Errorf("flushing nodes deletion batch: %w", err)
	}

	logger.Infof("pruned %d nodes", deleted)
	return deleted, nil
}
