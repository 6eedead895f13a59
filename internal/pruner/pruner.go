// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package pruner holds the definitions shared by the pruner implementations.
package pruner

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/lib/common"
)

// Mode is the pruning mode.
type Mode string

const (
	// Archive keeps all the nodes of all versions.
	Archive Mode = "archive"
	// Full prunes the nodes retired more than a number of versions ago.
	Full Mode = "full"
)

// ErrModeNotValid is returned when a pruning mode string is not valid.
var ErrModeNotValid = errors.New("pruning mode is not valid")

// ParseMode parses the pruning mode string given.
func ParseMode(s string) (mode Mode, err error) {
	switch Mode(s) {
	case Archive, Full:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrModeNotValid, s)
	}
}

// Commit identifies a tree root committed at a version.
type Commit struct {
	_       struct{} `cbor:",toarray"`
	Version uint64
	Root    common.Hash
}

func (c Commit) String() string {
	return fmt.Sprintf("%d/%s", c.Version, c.Root.Short())
}
