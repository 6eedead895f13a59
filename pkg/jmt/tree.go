// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "jmt"))

// Tree is the Jellyfish Merkle tree engine. It holds no root: every
// operation takes the root hash to operate on, so that any number of
// versions and forks can be read and updated from the same node reader.
// It is safe for concurrent use if its node reader is.
type Tree struct {
	reader  NodeReader
	metrics Metrics
	logger  Logger
}

// Logger logs formatted messages at the trace and debug levels.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Option is a functional option for the tree.
type Option func(t *Tree)

// WithMetrics sets the metrics the tree reports to.
func WithMetrics(metrics Metrics) Option {
	return func(t *Tree) {
		t.metrics = metrics
	}
}

// WithLogger sets the logger of the tree, which
// defaults to the package logger.
func WithLogger(logger Logger) Option {
	return func(t *Tree) {
		t.logger = logger
	}
}

// New returns a tree engine reading nodes from the reader given.
func New(reader NodeReader, options ...Option) *Tree {
	t := &Tree{
		reader:  reader,
		metrics: NoopMetrics{},
		logger:  logger,
	}
	for _, option := range options {
		option(t)
	}
	return t
}

// Get returns the value stored at the key hash given in the tree
// with the root hash given. A nil value is returned if the key is absent.
func (t *Tree) Get(root, key common.Hash) (value []byte, err error) {
	if root == common.EmptyHash {
		return nil, nil
	}

	hash := root
	for depth := 0; depth <= nibble.MaxLen; depth++ {
		n, err := t.reader.GetNode(hash)
		if err != nil {
			return nil, fmt.Errorf("getting node at depth %d: %w", depth, err)
		}

		switch n := n.(type) {
		case node.Null:
			return nil, nil
		case *node.Leaf:
			if n.KeyHash != key {
				return nil, nil
			}
			value = make([]byte, len(n.Value))
			copy(value, n.Value)
			return value, nil
		case *node.Internal:
			if depth == nibble.MaxLen {
				return nil, fmt.Errorf("%w: internal node at depth %d", ErrMaxDepthExceeded, depth)
			}
			child := n.Children[key.NibbleAt(depth)]
			if child == nil {
				return nil, nil
			}
			hash = child.Hash
		}
	}

	return nil, ErrMaxDepthExceeded
}
