// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import (
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/qdm12/gotree"
)

// Kind is the kind of a node.
type Kind uint8

const (
	// KindNull is the kind of the empty subtree node.
	KindNull Kind = iota
	// KindLeaf is the kind of a leaf node holding a key hash and its value.
	KindLeaf
	// KindInternal is the kind of a node with up to 16 children.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindLeaf:
		return "Leaf"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Node is a node of the Jellyfish Merkle tree.
// Nodes are immutable once created and are identified by their hash.
type Node interface {
	Kind() Kind
	Hash() common.Hash
	String() string
	StringNode() *gotree.Node
}

var (
	_ Node = Null{}
	_ Node = (*Leaf)(nil)
	_ Node = (*Internal)(nil)
)

// Null is the node of an empty tree.
type Null struct{}

// Kind returns KindNull.
func (Null) Kind() Kind { return KindNull }

// Hash returns the placeholder hash, which is the empty hash.
func (Null) Hash() common.Hash { return PlaceholderHash }

func (n Null) String() string { return n.StringNode().String() }

// StringNode returns a gotree compatible node for String methods.
func (Null) StringNode() *gotree.Node { return gotree.New("Null") }
