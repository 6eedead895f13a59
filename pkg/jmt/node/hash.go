// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import "github.com/ChainSafe/jellyfish/lib/common"

// PlaceholderHash is the hash of an empty subtree.
var PlaceholderHash = common.EmptyHash

var (
	leafDomain     = []byte("JMT::LeafNode")
	internalDomain = []byte("JMT::InternalNode")
)

// HashValue returns the hash of a value blob.
func HashValue(value []byte) common.Hash {
	return common.MustBlake2bHash(value)
}

// HashLeaf returns the hash of a leaf holding a value with
// the value hash given at the key hash given.
func HashLeaf(keyHash, valueHash common.Hash) common.Hash {
	return common.Blake2bHashParts(leafDomain, keyHash[:], valueHash[:])
}

// HashInternal returns the hash of a binary Merkle node
// from its left and right hashes.
func HashInternal(left, right common.Hash) common.Hash {
	return common.Blake2bHashParts(internalDomain, left[:], right[:])
}
