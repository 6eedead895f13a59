// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package nibble

import (
	"strings"

	"github.com/ChainSafe/jellyfish/lib/common"
)

// NibblesPerByte is the number of nibbles packed in a byte.
const NibblesPerByte = 2

// MaxLen is the length of the path of a full 256 bits key hash.
const MaxLen = common.HashLength * NibblesPerByte

// Path is a sequence of nibbles packed two per byte, most significant
// nibble first. An odd length path leaves the low nibble of its last
// byte zeroed.
type Path struct {
	inner []byte
	len   int
}

// FromHash returns the full 64 nibbles path of the hash given.
func FromHash(h common.Hash) Path {
	inner := make([]byte, common.HashLength)
	copy(inner, h[:])
	return Path{inner: inner, len: MaxLen}
}

// New returns a path made of the nibbles given.
// The high 4 bits of each nibble are ignored.
func New(nibbles ...uint8) (p Path) {
	p.inner = make([]byte, 0, (len(nibbles)+1)/NibblesPerByte)
	for _, n := range nibbles {
		p.Push(n)
	}
	return p
}

// Len returns the number of nibbles in the path.
func (p Path) Len() int { return p.len }

// IsEmpty returns true if the path has no nibble.
func (p Path) IsEmpty() bool { return p.len == 0 }

// At returns the nibble at the index given.
// It panics if the index is out of range.
func (p Path) At(i int) uint8 {
	if i < 0 || i >= p.len {
		panic("nibble index out of range")
	}
	b := p.inner[i/NibblesPerByte]
	if i%NibblesPerByte == 0 {
		return b >> 4
	}
	return b & 0x0f
}

// Push appends a nibble at the end of the path.
func (p *Path) Push(n uint8) {
	n &= 0x0f
	if p.len%NibblesPerByte == 0 {
		p.inner = append(p.inner, n<<4)
	} else {
		p.inner[len(p.inner)-1] |= n
	}
	p.len++
}

// Child returns a copy of the path extended with the nibble given.
func (p Path) Child(n uint8) Path {
	child := Path{
		inner: make([]byte, len(p.inner), len(p.inner)+1),
		len:   p.len,
	}
	copy(child.inner, p.inner)
	child.Push(n)
	return child
}

// Truncate returns a copy of the first n nibbles of the path.
func (p Path) Truncate(n int) Path {
	if n >= p.len {
		n = p.len
	}
	truncated := Path{
		inner: make([]byte, (n+1)/NibblesPerByte),
		len:   n,
	}
	copy(truncated.inner, p.inner)
	if n%NibblesPerByte == 1 {
		truncated.inner[len(truncated.inner)-1] &= 0xf0
	}
	return truncated
}

// Equal returns true if both paths hold the same nibbles.
func (p Path) Equal(other Path) bool {
	return p.len == other.len && CommonPrefixLen(p, other) == p.len
}

// HasPrefix returns true if the path starts with the prefix given.
func (p Path) HasPrefix(prefix Path) bool {
	return prefix.len <= p.len && CommonPrefixLen(p, prefix) == prefix.len
}

// CommonPrefixLen returns the number of leading nibbles both paths share.
func CommonPrefixLen(a, b Path) (n int) {
	limit := a.len
	if b.len < limit {
		limit = b.len
	}
	for n < limit && a.At(n) == b.At(n) {
		n++
	}
	return n
}

// Bytes returns the packed nibbles of the path.
func (p Path) Bytes() []byte {
	b := make([]byte, len(p.inner))
	copy(b, p.inner)
	return b
}

// String returns the path as a hexadecimal string with one
// character per nibble.
func (p Path) String() string {
	const hexDigits = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(p.len)
	for i := 0; i < p.len; i++ {
		builder.WriteByte(hexDigits[p.At(i)])
	}
	return builder.String()
}
