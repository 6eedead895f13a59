// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
	"github.com/disiqueira/gotree"
)

// String returns the tree with the root hash given
// stringified through pre-order traversal.
func (t *Tree) String(root common.Hash) (s string, err error) {
	if root == common.EmptyHash {
		return "empty", nil
	}

	tree := gotree.New("Tree " + root.Short())
	err = t.string(tree, root, -1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("\n%s", tree.Print()), nil
}

func (t *Tree) string(tree gotree.Tree, hash common.Hash, idx int) error {
	n, err := t.reader.GetNode(hash)
	if err != nil {
		return fmt.Errorf("getting node %s: %w", hash.Short(), err)
	}

	prefix := ""
	if idx >= 0 {
		prefix = fmt.Sprintf("idx=%x ", idx)
	}

	switch n := n.(type) {
	case *node.Internal:
		sub := tree.Add(fmt.Sprintf("%sinternal %s", prefix, hash.Short()))
		for i, child := range n.Children {
			if child == nil {
				continue
			}
			err = t.string(sub, child.Hash, i)
			if err != nil {
				return err
			}
		}
	case *node.Leaf:
		tree.Add(fmt.Sprintf("%sleaf %s key=%s value=0x%x", prefix, hash.Short(), n.KeyHash.Short(), n.Value))
	default:
		tree.Add(prefix + "null")
	}
	return nil
}
