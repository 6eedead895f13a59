// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package node

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
)

// ErrCorruptNode is returned when bytes cannot be decoded into a node.
var ErrCorruptNode = errors.New("corrupt node")

// Decode decodes a node from its encoding, see Encode for the format.
// All the bytes given must be consumed by the decoding.
func Decode(encoding []byte) (n Node, err error) {
	if len(encoding) == 0 {
		return nil, fmt.Errorf("%w: empty encoding", ErrCorruptNode)
	}

	tag, data := encoding[0], encoding[1:]
	switch tag {
	case nullTag:
		if len(data) > 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes after null node", ErrCorruptNode, len(data))
		}
		return Null{}, nil
	case leafTag:
		n, err = decodeLeaf(data)
		if err != nil {
			return nil, fmt.Errorf("decoding leaf: %w", err)
		}
		return n, nil
	case internalTag:
		n, err = decodeInternal(data)
		if err != nil {
			return nil, fmt.Errorf("decoding internal node: %w", err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrCorruptNode, tag)
	}
}

func decodeLeaf(data []byte) (leaf *Leaf, err error) {
	if len(data) < common.HashLength {
		return nil, fmt.Errorf("%w: key hash needs %d bytes but only %d are left",
			ErrCorruptNode, common.HashLength, len(data))
	}
	leaf = &Leaf{KeyHash: common.NewHash(data[:common.HashLength])}
	data = data[common.HashLength:]

	valueLength, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("%w: malformed value length", ErrCorruptNode)
	}
	data = data[n:]

	if uint64(len(data)) != valueLength {
		return nil, fmt.Errorf("%w: value length is %d but %d bytes are left",
			ErrCorruptNode, valueLength, len(data))
	}
	leaf.Value = make([]byte, valueLength)
	copy(leaf.Value, data)
	return leaf, nil
}

func decodeInternal(data []byte) (internal *Internal, err error) {
	const bitmapSize = 2
	if len(data) < bitmapSize {
		return nil, fmt.Errorf("%w: children bitmap needs %d bytes but only %d are left",
			ErrCorruptNode, bitmapSize, len(data))
	}
	bitmap := binary.BigEndian.Uint16(data)
	data = data[bitmapSize:]
	if bitmap == 0 {
		return nil, fmt.Errorf("%w: internal node has no child", ErrCorruptNode)
	}

	internal = new(Internal)
	for i := 0; i < ChildrenCapacity; i++ {
		if bitmap&(1<<i) == 0 {
			continue
		}

		if len(data) < common.HashLength+1 {
			return nil, fmt.Errorf("%w: child %d is truncated", ErrCorruptNode, i)
		}
		child := &Child{Hash: common.NewHash(data[:common.HashLength])}
		data = data[common.HashLength:]

		switch data[0] {
		case 0:
		case 1:
			child.IsLeaf = true
		default:
			return nil, fmt.Errorf("%w: child %d has invalid leaf flag %d", ErrCorruptNode, i, data[0])
		}
		data = data[1:]

		var n int
		child.Version, n = binary.Uvarint(data)
		if n <= 0 {
			return nil, fmt.Errorf("%w: child %d has malformed version", ErrCorruptNode, i)
		}
		data = data[n:]

		internal.Children[i] = child
	}

	if len(data) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after internal node", ErrCorruptNode, len(data))
	}

	return internal, nil
}
