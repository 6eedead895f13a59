// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ChainSafe/jellyfish/dot/state"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/spf13/cobra"
)

var errEntryMalformed = errors.New("entry is malformed")

// parseKey returns the key hash of the key given. The key is hashed
// with blake2b unless hashed is true, in which case it must be a
// 0x prefixed hexadecimal key hash.
func parseKey(key string, hashed bool) (keyHash common.Hash, err error) {
	if hashed {
		keyHash, err = common.HexToHash(key)
		if err != nil {
			return keyHash, fmt.Errorf("parsing key hash %q: %w", key, err)
		}
		return keyHash, nil
	}
	return common.Blake2bHash([]byte(key))
}

// parseEntries parses arguments of the form key=value.
func parseEntries(args []string, hashed bool) (entries []jmt.KeyValue, err error) {
	entries = make([]jmt.KeyValue, len(args))
	for i, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return nil, fmt.Errorf("%w: %q has no = separator", errEntryMalformed, arg)
		}

		entries[i].Key, err = parseKey(key, hashed)
		if err != nil {
			return nil, err
		}
		entries[i].Value = []byte(value)
	}
	return entries, nil
}

// rootFromFlag returns the root given by the --root flag of the
// command, or the root of the head given if the flag is not set.
func rootFromFlag(cmd *cobra.Command, head state.Head) (root common.Hash, err error) {
	rootString, err := cmd.Flags().GetString(rootFlag)
	if err != nil {
		return root, fmt.Errorf("failed to get --%s: %s", rootFlag, err)
	}

	if rootString == "" {
		return head.Root, nil
	}

	root, err = common.HexToHash(rootString)
	if err != nil {
		return root, fmt.Errorf("parsing root %q: %w", rootString, err)
	}
	return root, nil
}
