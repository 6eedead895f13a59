// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package archive

import (
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/lib/common"
)

// Pruner is a no-op since we don't prune nodes in archive mode.
type Pruner struct{}

// New returns a new archive mode pruner (no-op).
func New() *Pruner {
	return &Pruner{}
}

// RecordAndPrune is a no-op implementation.
func (*Pruner) RecordAndPrune(_, _ map[common.Hash]struct{}, _, _ pruner.Commit) (_ error) {
	return nil
}
