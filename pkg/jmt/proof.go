// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
)

// ProofLeaf is the leaf found at the end of a proof path.
type ProofLeaf struct {
	KeyHash   common.Hash `json:"keyHash"`
	ValueHash common.Hash `json:"valueHash"`
}

// Proof is a sparse Merkle proof of the presence or absence of a key.
// Siblings are ordered from the leaf level up to the root level.
type Proof struct {
	Leaf     *ProofLeaf    `json:"leaf,omitempty"`
	Siblings []common.Hash `json:"siblings"`
}

// GetProof returns the proof for the key hash given in the tree with
// the root hash given.
func (t *Tree) GetProof(root, key common.Hash) (proof *Proof, err error) {
	_, proof, err = t.GetWithProof(root, key)
	return proof, err
}

// GetWithProof returns the value at the key hash given, nil if the key
// is absent, together with a proof of inclusion or exclusion.
func (t *Tree) GetWithProof(root, key common.Hash) (value []byte, proof *Proof, err error) {
	proof = &Proof{Siblings: []common.Hash{}}
	if root == common.EmptyHash {
		return nil, proof, nil
	}

	var siblings []common.Hash
	hash := root
	for depth := 0; depth <= nibble.MaxLen; depth++ {
		n, err := t.reader.GetNode(hash)
		if err != nil {
			return nil, nil, fmt.Errorf("getting node at depth %d: %w", depth, err)
		}

		switch n := n.(type) {
		case node.Null:
			proof.Siblings = reverse(siblings)
			return nil, proof, nil
		case *node.Leaf:
			proof.Leaf = &ProofLeaf{
				KeyHash:   n.KeyHash,
				ValueHash: n.ValueHash(),
			}
			proof.Siblings = reverse(siblings)
			if n.KeyHash == key {
				value = make([]byte, len(n.Value))
				copy(value, n.Value)
			}
			return value, proof, nil
		case *node.Internal:
			if depth == nibble.MaxLen {
				return nil, nil, fmt.Errorf("%w: internal node at depth %d", ErrMaxDepthExceeded, depth)
			}
			child, nodeSiblings := n.ChildWithSiblings(key.NibbleAt(depth))
			siblings = append(siblings, nodeSiblings...)
			if child == nil {
				proof.Siblings = reverse(siblings)
				return nil, proof, nil
			}
			hash = child.Hash
		}
	}

	return nil, nil, ErrMaxDepthExceeded
}

func reverse(hashes []common.Hash) (reversed []common.Hash) {
	reversed = make([]common.Hash, len(hashes))
	for i, hash := range hashes {
		reversed[len(hashes)-1-i] = hash
	}
	return reversed
}

// VerifyProof returns true if the proof given proves that the key hash
// given maps to the value given in the tree with the root hash given.
// A nil value claims the key is absent. Any mismatch returns false.
func VerifyProof(root, key common.Hash, value []byte, proof *Proof) bool {
	if proof == nil || len(proof.Siblings) > common.HashLength*8 {
		return false
	}

	var current common.Hash
	switch {
	case proof.Leaf != nil && value != nil:
		if proof.Leaf.KeyHash != key || node.HashValue(value) != proof.Leaf.ValueHash {
			return false
		}
		current = node.HashLeaf(proof.Leaf.KeyHash, proof.Leaf.ValueHash)
	case proof.Leaf != nil:
		// The leaf of another key proves the absence of the key only
		// if it sits where the key would be.
		if proof.Leaf.KeyHash == key ||
			common.CommonPrefixBits(key, proof.Leaf.KeyHash) < len(proof.Siblings) {
			return false
		}
		current = node.HashLeaf(proof.Leaf.KeyHash, proof.Leaf.ValueHash)
	case value != nil:
		return false
	default:
		current = node.PlaceholderHash
	}

	numberOfSiblings := len(proof.Siblings)
	for i, sibling := range proof.Siblings {
		if key.BitAt(numberOfSiblings - 1 - i) {
			current = node.HashInternal(sibling, current)
		} else {
			current = node.HashInternal(current, sibling)
		}
	}

	return current == root
}

// Verify is VerifyProof for the proof.
func (p *Proof) Verify(root, key common.Hash, value []byte) bool {
	return VerifyProof(root, key, value, p)
}
