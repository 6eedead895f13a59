// Copyright 2019 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/fxamacker/cbor/v2"
)

var headKey = []byte("head")

// Head is the canonical state root and its version.
type Head struct {
	_       struct{} `cbor:",toarray"`
	Root    common.Hash
	Version uint64
}

func (h Head) String() string {
	return fmt.Sprintf("root %s at version %d", h.Root, h.Version)
}

// StoreHead stores the head given at the head key.
func StoreHead(db database.Writer, head Head) error {
	encoded, err := cbor.Marshal(head)
	if err != nil {
		return fmt.Errorf("encoding head: %w", err)
	}
	return db.Set(headKey, encoded)
}

// LoadHead loads the head stored at the head key. It returns an
// error wrapping database.ErrKeyNotFound if no head is stored.
func LoadHead(db database.Reader) (head Head, err error) {
	encoded, err := db.Get(headKey)
	if err != nil {
		return head, err
	}

	err = cbor.Unmarshal(encoded, &head)
	if err != nil {
		return head, fmt.Errorf("decoding head: %w", err)
	}
	return head, nil
}
