// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package common

import (
	"github.com/OneOfOne/xxhash"
	"golang.org/x/crypto/blake2b"
)

// Blake2bHash returns the 256-bit blake2b hash of the input data
func Blake2bHash(in []byte) (Hash, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, err
	}

	_, err = h.Write(in)
	if err != nil {
		return [32]byte{}, err
	}

	hash := h.Sum(nil)
	var buf = [32]byte{}
	copy(buf[:], hash)
	return buf, nil
}

// MustBlake2bHash returns the 256-bit blake2b hash of the input data. It panics if it fails to hash.
func MustBlake2bHash(in []byte) Hash {
	hash, err := Blake2bHash(in)
	if err != nil {
		panic(err)
	}

	return hash
}

// Blake2bHashParts returns the 256-bit blake2b hash of the concatenation
// of all the parts given, without allocating the concatenation.
func Blake2bHashParts(parts ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// only fails for keys longer than 64 bytes
		panic(err)
	}

	for _, part := range parts {
		_, _ = h.Write(part)
	}

	var buf Hash
	copy(buf[:], h.Sum(nil))
	return buf
}

// Twox128 computes xxHash64 twice with seeds 0 and 1 applied on the given byte slice.
func Twox128(in []byte) (h0, h1 uint64) {
	return xxhash.Checksum64S(in, 0), xxhash.Checksum64S(in, 1)
}
