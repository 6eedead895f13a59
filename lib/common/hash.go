// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// HashLength is the expected length of the common.Hash type
	HashLength = 32
)

// EmptyHash is the all zero hash. It is the root hash of the empty tree
// and the placeholder hash of empty subtrees.
var EmptyHash = Hash{}

var (
	ErrInvalidHashFormat = errors.New("invalid hash format")
	ErrNoHexPrefix       = errors.New("could not byteify non 0x prefixed string")
	ErrHashLength        = errors.New("hash length is not 32 bytes")
)

// Hash used to store a blake2b hash
type Hash [32]byte

// NewHash casts a byte array to a Hash
// if the input is longer than 32 bytes, it takes the first 32 bytes
func NewHash(in []byte) (res Hash) {
	res = [32]byte{}
	copy(res[:], in)
	return res
}

// ToBytes turns a hash to a byte array
func (h Hash) ToBytes() []byte {
	b := [32]byte(h)
	return b[:]
}

// IsEmpty returns true if the hash is empty, false otherwise.
func (h Hash) IsEmpty() bool {
	return h == EmptyHash
}

// Compare compares the hashes byte by byte, returning -1, 0 or +1.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// String returns the hex string for the hash
func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

// Short returns the first 4 bytes and the last 4 bytes of the hex string for the hash
func (h Hash) Short() string {
	const nBytes = 4
	return fmt.Sprintf("0x%x...%x", h[:nBytes], h[len(h)-nBytes:])
}

// UnmarshalJSON converts hex data to hash
func (h *Hash) UnmarshalJSON(data []byte) error {
	trimmedData := strings.Trim(string(data), "\"")
	if len(trimmedData) < 2 {
		return ErrInvalidHashFormat
	}

	var err error
	if *h, err = HexToHash(trimmedData); err != nil {
		return err
	}
	return nil
}

// MarshalJSON converts hash to hex data
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// HexToHash turns a 0x prefixed hex string into type Hash.
// Shorter inputs are right padded with zeroes.
func HexToHash(in string) (Hash, error) {
	if !strings.HasPrefix(in, "0x") {
		return Hash{}, ErrNoHexPrefix
	}
	out, err := hex.DecodeString(in[2:])
	if err != nil {
		return Hash{}, err
	}
	if len(out) > HashLength {
		return Hash{}, fmt.Errorf("%w: %d bytes", ErrHashLength, len(out))
	}
	return NewHash(out), nil
}

// MustHexToHash turns a 0x prefixed hex string into type Hash
// it panics if it cannot turn the string into a Hash
func MustHexToHash(in string) Hash {
	h, err := HexToHash(in)
	if err != nil {
		panic(err)
	}
	return h
}

// NibbleAt returns the nibble at the index given, where index 0
// is the most significant nibble of the first byte.
func (h Hash) NibbleAt(index int) byte {
	b := h[index/2]
	if index%2 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

// BitAt returns the bit at the index given, where index 0 is the
// most significant bit of the first byte.
func (h Hash) BitAt(index int) bool {
	return h[index/8]&(0x80>>(index%8)) != 0
}

// CommonPrefixBits returns the number of leading bits shared by both hashes.
func CommonPrefixBits(a, b Hash) (n int) {
	for i := 0; i < HashLength; i++ {
		x := a[i] ^ b[i]
		if x == 0 {
			n += 8
			continue
		}
		for mask := byte(0x80); x&mask == 0; mask >>= 1 {
			n++
		}
		return n
	}
	return n
}
