// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import (
	"math/bits"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/qdm12/gotree"
)

// ChildrenCapacity is the maximum number of children of an internal node.
const ChildrenCapacity = 16

// Child is a reference from an internal node to one of its children.
type Child struct {
	Hash   common.Hash
	IsLeaf bool
	// Version is the version of the commit which created the child.
	// It is not part of the hash computation.
	Version uint64
}

// Internal is a node with up to 16 children, indexed by nibble.
type Internal struct {
	Children [ChildrenCapacity]*Child
}

// Kind returns KindInternal.
func (*Internal) Kind() Kind { return KindInternal }

// Bitmap returns the existence bitmap of the children,
// where bit i is set if the child at nibble i exists.
func (n *Internal) Bitmap() (bitmap uint16) {
	for i, child := range n.Children {
		if child != nil {
			bitmap |= 1 << i
		}
	}
	return bitmap
}

// NumChildren returns the number of children of the node.
func (n *Internal) NumChildren() int {
	return bits.OnesCount16(n.Bitmap())
}

// Hash returns the Merkle hash of the node, which is the root of
// the binary Merkle tree built over its 16 children slots.
func (n *Internal) Hash() common.Hash {
	return n.merkleHash(n.Bitmap(), 0, ChildrenCapacity)
}

func rangeMask(start, width uint8) uint16 {
	return uint16((1<<width)-1) << start
}

// merkleHash returns the hash of the binary subtree spanning children
// slots [start, start+width). Empty ranges hash to the placeholder and a
// range holding a single leaf hashes to that leaf.
func (n *Internal) merkleHash(bitmap uint16, start, width uint8) common.Hash {
	rangeBitmap := bitmap & rangeMask(start, width)
	switch {
	case rangeBitmap == 0:
		return PlaceholderHash
	case width == 1:
		return n.Children[start].Hash
	case bits.OnesCount16(rangeBitmap) == 1:
		only := bits.TrailingZeros16(rangeBitmap)
		if n.Children[only].IsLeaf {
			return n.Children[only].Hash
		}
	}

	half := width / 2
	left := n.merkleHash(bitmap, start, half)
	right := n.merkleHash(bitmap, start+half, half)
	return HashInternal(left, right)
}

// ChildWithSiblings returns the child on the path of the nibble given
// together with the sibling hashes of the binary subtrees on the way
// to it, ordered top to bottom. The child returned is nil if the path
// leads to an empty range. It may be a leaf whose nibble differs from the
// nibble given, if that leaf is alone in the range.
func (n *Internal) ChildWithSiblings(nibble uint8) (child *Child, siblings []common.Hash) {
	bitmap := n.Bitmap()
	siblings = make([]common.Hash, 0, 4)
	for height := 3; height >= 0; height-- {
		width := uint8(1) << height
		childHalfStart := (uint8(0xff) << height) & nibble
		siblingHalfStart := childHalfStart ^ width

		siblings = append(siblings, n.merkleHash(bitmap, siblingHalfStart, width))

		rangeBitmap := bitmap & rangeMask(childHalfStart, width)
		if rangeBitmap == 0 {
			return nil, siblings
		}

		if width == 1 || bits.OnesCount16(rangeBitmap) == 1 {
			only := bits.TrailingZeros16(rangeBitmap)
			if width == 1 || n.Children[only].IsLeaf {
				return n.Children[only], siblings
			}
		}
	}
	panic("unreachable: width 1 always returns")
}

// Copy returns a copy of the node, sharing no child.
func (n *Internal) Copy() *Internal {
	copied := new(Internal)
	for i, child := range n.Children {
		if child == nil {
			continue
		}
		c := *child
		copied.Children[i] = &c
	}
	return copied
}

func (n *Internal) String() string {
	return n.StringNode().String()
}

// StringNode returns a gotree compatible node for String methods.
func (n *Internal) StringNode() (stringNode *gotree.Node) {
	stringNode = gotree.New("Internal")
	stringNode.Appendf("Bitmap: %016b", n.Bitmap())
	stringNode.Appendf("Hash: %s", n.Hash())
	for i, child := range n.Children {
		if child == nil {
			continue
		}
		kind := KindInternal
		if child.IsLeaf {
			kind = KindLeaf
		}
		stringNode.Appendf("Child %x: %s %s version %d", i, kind, child.Hash.Short(), child.Version)
	}
	return stringNode
}
