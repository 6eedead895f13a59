// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"encoding/binary"
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// bloomNodeHasher uses the first 8 bytes of a node hash as the
// bloom filter hash, since node hashes are already uniformly distributed.
type bloomNodeHasher common.Hash

func (f bloomNodeHasher) Write(p []byte) (n int, err error) { panic("not implemented") }
func (f bloomNodeHasher) Sum(b []byte) []byte               { panic("not implemented") }
func (f bloomNodeHasher) Reset()                            { panic("not implemented") }
func (f bloomNodeHasher) BlockSize() int                    { panic("not implemented") }
func (f bloomNodeHasher) Size() int                         { return 8 }
func (f bloomNodeHasher) Sum64() uint64                     { return binary.BigEndian.Uint64(f[:8]) }

// bloomState is a wrapper for bloom filter.
// The hashes of all the nodes reachable from the retained roots are
// recorded here so these nodes are not deleted by the offline pruner.
type bloomState struct {
	bloom *bloomfilter.Filter
}

// newBloomState creates a bloom filter of the size given in MiB.
func newBloomState(sizeMiB uint64) (*bloomState, error) {
	bloom, err := bloomfilter.New(sizeMiB*1024*1024*8, 4)
	if err != nil {
		return nil, fmt.Errorf("creating bloom filter: %w", err)
	}
	logger.Infof("initialised state bloom with size %d bytes", bloom.M()/8)
	return &bloomState{bloom: bloom}, nil
}

// put records the node hash in the bloom filter.
func (sb *bloomState) put(hash common.Hash) {
	sb.bloom.Add(bloomNodeHasher(hash))
}

// contain is the wrapper of the underlying contains function which
// reports whether the node hash is contained.
// - If it says yes, the node hash may be contained
// - If it says no, the node hash is definitely not contained.
func (sb *bloomState) contain(hash common.Hash) bool {
	return sb.bloom.Contains(bloomNodeHasher(hash))
}
