// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pebble

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/cockroachdb/pebble"
)

func makePrefixedKey(prefix, key []byte) (prefixedKey []byte) {
	prefixedKey = make([]byte, 0, len(prefix)+len(key))
	prefixedKey = append(prefixedKey, prefix...)
	prefixedKey = append(prefixedKey, key...)
	return prefixedKey
}

// keyUpperBound returns the smallest key greater than all
// the keys with the prefix given, or nil if there is none.
func keyUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)

	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}

	return nil
}

// transformError transforms a pebble error into a database error
// eventually, for errors defined in the parent database package.
func transformError(pebbleErr error) (err error) {
	if errors.Is(pebbleErr, pebble.ErrClosed) {
		return fmt.Errorf("%w", database.ErrClosed)
	}
	return pebbleErr
}
