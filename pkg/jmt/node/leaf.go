// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/qdm12/gotree"
)

// Leaf is a node holding a value for a key hash.
type Leaf struct {
	KeyHash common.Hash
	Value   []byte
}

// NewLeaf creates a new leaf using the arguments given.
func NewLeaf(keyHash common.Hash, value []byte) *Leaf {
	return &Leaf{
		KeyHash: keyHash,
		Value:   value,
	}
}

// Kind returns KindLeaf.
func (*Leaf) Kind() Kind { return KindLeaf }

// ValueHash returns the hash of the leaf value.
func (l *Leaf) ValueHash() common.Hash {
	return HashValue(l.Value)
}

// Hash returns the Merkle hash of the leaf.
func (l *Leaf) Hash() common.Hash {
	return HashLeaf(l.KeyHash, l.ValueHash())
}

func (l *Leaf) String() string {
	return l.StringNode().String()
}

// StringNode returns a gotree compatible node for String methods.
func (l *Leaf) StringNode() (stringNode *gotree.Node) {
	stringNode = gotree.New("Leaf")
	stringNode.Appendf("Key hash: %s", l.KeyHash)
	stringNode.Appendf("Value: %s", bytesToString(l.Value))
	stringNode.Appendf("Hash: %s", l.Hash())
	return stringNode
}

func bytesToString(b []byte) (s string) {
	switch {
	case b == nil:
		return "nil"
	case len(b) <= 20:
		return fmt.Sprintf("0x%x", b)
	default:
		return fmt.Sprintf("0x%x...%x", b[:8], b[len(b)-8:])
	}
}
