// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"errors"
	"fmt"
)

// DefaultListeningAddress is the listening address used if none is set.
const DefaultListeningAddress = "localhost:6060"

// ErrRateNegative is returned when a profiling rate is negative.
var ErrRateNegative = errors.New("profiling rate cannot be negative")

// Settings configures the profiling server. Rates left
// to zero keep block and mutex profiling disabled.
type Settings struct {
	ListeningAddress string
	// BlockProfileRate is given to runtime.SetBlockProfileRate.
	BlockProfileRate int
	// MutexProfileRate is given to runtime.SetMutexProfileFraction.
	MutexProfileRate int
}

func (s *Settings) setDefaults() {
	if s.ListeningAddress == "" {
		s.ListeningAddress = DefaultListeningAddress
	}
}

// Validate returns an error if a profiling rate is negative.
func (s Settings) Validate() error {
	if s.BlockProfileRate < 0 {
		return fmt.Errorf("%w: block profile rate %d", ErrRateNegative, s.BlockProfileRate)
	}
	if s.MutexProfileRate < 0 {
		return fmt.Errorf("%w: mutex profile rate %d", ErrRateNegative, s.MutexProfileRate)
	}
	return nil
}
