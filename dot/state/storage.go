// Copyright 2019 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	storagePrefix = "state"
	journalPrefix = "journal"
)

var (
	nodeReadsCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_state_storage",
		Name:      "node_reads_total",
		Help:      "total number of nodes read from the node storage",
	})
	nodeWritesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_state_storage",
		Name:      "node_writes_total",
		Help:      "total number of nodes written to the node storage",
	})
	nodeDeletesCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_state_storage",
		Name:      "node_deletes_total",
		Help:      "total number of nodes deleted from the node storage",
	})
)

// NodeStorage stores encoded tree nodes keyed by node hash
// in a table of the database. It implements jmt.NodeStore.
type NodeStorage struct {
	table          database.Table
	readsCounter   prometheus.Counter
	writesCounter  prometheus.Counter
	deletesCounter prometheus.Counter
}

// NewNodeStorage returns the node storage using the
// state table of the database given.
func NewNodeStorage(db database.Database) *NodeStorage {
	return &NodeStorage{
		table:          db.NewTable(storagePrefix),
		readsCounter:   nodeReadsCounter,
		writesCounter:  nodeWritesCounter,
		deletesCounter: nodeDeletesCounter,
	}
}

// Get returns the encoded node with the hash given,
// or nil if the node is not found.
func (s *NodeStorage) Get(hash common.Hash) (encoding []byte, err error) {
	encoding, err = s.table.Get(hash.ToBytes())
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	s.readsCounter.Inc()
	return encoding, nil
}

// PutBatch writes all the encoded nodes given in a single write batch.
func (s *NodeStorage) PutBatch(batch map[common.Hash][]byte) (err error) {
	writeBatch := s.table.NewWriteBatch()
	for hash, encoding := range batch {
		err = writeBatch.Set(hash.ToBytes(), encoding)
		if err != nil {
			writeBatch.Cancel()
			return fmt.Errorf("setting node %s in write batch: %w", hash, err)
		}
	}

	err = writeBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing write batch: %w", err)
	}
	s.writesCounter.Add(float64(len(batch)))
	return nil
}

// Delete deletes the nodes with the hashes given in a single write batch.
func (s *NodeStorage) Delete(hashes ...common.Hash) (err error) {
	writeBatch := s.table.NewWriteBatch()
	for _, hash := range hashes {
		err = writeBatch.Delete(hash.ToBytes())
		if err != nil {
			writeBatch.Cancel()
			return fmt.Errorf("deleting node %s in write batch: %w", hash, err)
		}
	}

	err = writeBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing write batch: %w", err)
	}
	s.deletesCounter.Add(float64(len(hashes)))
	return nil
}

// NewWriteBatch returns a write batch on the node table, used
// by the pruners to delete nodes in batches.
func (s *NodeStorage) NewWriteBatch() database.WriteBatch {
	return s.table.NewWriteBatch()
}

// Stream calls handle for every node of the storage,
// until handle returns an error or the context is canceled.
func (s *NodeStorage) Stream(ctx context.Context,
	handle func(hash common.Hash, encoding []byte) error) error {
	return s.table.Stream(ctx,
		func(key []byte) bool { return len(key) == common.HashLength },
		func(key, value []byte) error {
			return handle(common.NewHash(key), value)
		})
}
