// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import (
	"encoding/binary"
	"fmt"
)

// Encoding tags, the first byte of every encoded node.
const (
	nullTag     byte = 0
	leafTag     byte = 1
	internalTag byte = 2
)

// Encode encodes the node given to bytes:
//   - Null: the null tag.
//   - Leaf: the leaf tag, the 32 bytes key hash, the uvarint length
//     of the value and the value bytes.
//   - Internal: the internal tag, the big endian 16 bits children
//     existence bitmap, then for each present child in ascending
//     nibble order its 32 bytes hash, a leaf flag byte and its
//     version as uvarint.
func Encode(n Node) (encoding []byte) {
	switch n := n.(type) {
	case Null:
		return []byte{nullTag}
	case *Leaf:
		return encodeLeaf(n)
	case *Internal:
		return encodeInternal(n)
	default:
		panic(fmt.Sprintf("node type %T not implemented", n))
	}
}

func encodeLeaf(leaf *Leaf) (encoding []byte) {
	encoding = make([]byte, 0, 1+len(leaf.KeyHash)+binary.MaxVarintLen64+len(leaf.Value))
	encoding = append(encoding, leafTag)
	encoding = append(encoding, leaf.KeyHash[:]...)
	encoding = binary.AppendUvarint(encoding, uint64(len(leaf.Value)))
	encoding = append(encoding, leaf.Value...)
	return encoding
}

func encodeInternal(internal *Internal) (encoding []byte) {
	const childMaxSize = 32 + 1 + binary.MaxVarintLen64
	encoding = make([]byte, 0, 3+internal.NumChildren()*childMaxSize)
	encoding = append(encoding, internalTag)
	encoding = binary.BigEndian.AppendUint16(encoding, internal.Bitmap())
	for _, child := range internal.Children {
		if child == nil {
			continue
		}
		encoding = append(encoding, child.Hash[:]...)
		leafFlag := byte(0)
		if child.IsLeaf {
			leafFlag = 1
		}
		encoding = append(encoding, leafFlag)
		encoding = binary.AppendUvarint(encoding, child.Version)
	}
	return encoding
}
