// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
	"github.com/gammazero/deque"
)

// ErrSkipSubtree can be returned by a walk function to not
// descend into the children of the node it was called with.
var ErrSkipSubtree = errors.New("skip subtree")

// WalkFunc is called for each node of a walk with the path of the node.
type WalkFunc func(path nibble.Path, hash common.Hash, n node.Node) error

type walkItem struct {
	path nibble.Path
	hash common.Hash
}

// Walk visits all the nodes reachable from the root hash given in
// breadth first order, calling fn for each of them. Nothing is visited
// for the empty root.
func (t *Tree) Walk(root common.Hash, fn WalkFunc) (err error) {
	if root == common.EmptyHash {
		return nil
	}

	queue := deque.New[walkItem]()
	queue.PushBack(walkItem{path: nibble.New(), hash: root})
	for queue.Len() > 0 {
		item := queue.PopFront()
		n, err := t.reader.GetNode(item.hash)
		if err != nil {
			return fmt.Errorf("getting node at path %q: %w", item.path, err)
		}

		err = fn(item.path, item.hash, n)
		if errors.Is(err, ErrSkipSubtree) {
			continue
		} else if err != nil {
			return err
		}

		internal, ok := n.(*node.Internal)
		if !ok {
			continue
		}
		if item.path.Len() >= nibble.MaxLen {
			return fmt.Errorf("%w: internal node at path %s", ErrMaxDepthExceeded, item.path)
		}
		for i, child := range internal.Children {
			if child == nil {
				continue
			}
			queue.PushBack(walkItem{
				path: item.path.Child(uint8(i)),
				hash: child.Hash,
			})
		}
	}

	return nil
}
