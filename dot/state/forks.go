// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"sync"

	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forksGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "jellyfish_state_forks",
		Name:      "tracked_total",
		Help:      "total number of fork roots tracked in memory",
	})
	forkSetCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_state_forks",
		Name:      "set_total",
		Help:      "total number of forked state databases created",
	})
	forkDeleteCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "jellyfish_state_forks",
		Name:      "delete_total",
		Help:      "total number of fork roots dropped from memory",
	})
)

// Forks is a thread safe map of root hash to the number
// of state databases forked at this root.
type Forks struct {
	rootToCount   map[common.Hash]uint
	mapMutex      sync.RWMutex
	forksGauge    prometheus.Gauge
	setCounter    prometheus.Counter
	deleteCounter prometheus.Counter
}

// NewForks creates an empty thread safe map of root
// hash to number of forked state databases.
func NewForks() *Forks {
	return &Forks{
		rootToCount:   make(map[common.Hash]uint),
		forksGauge:    forksGauge,
		setCounter:    forkSetCounter,
		deleteCounter: forkDeleteCounter,
	}
}

// add records one more state database forked at the root given,
// and returns the number of state databases forked at this root.
func (f *Forks) add(root common.Hash) (count uint) {
	f.mapMutex.Lock()
	defer f.mapMutex.Unlock()

	f.rootToCount[root]++
	f.forksGauge.Set(float64(len(f.rootToCount)))
	f.setCounter.Inc()
	return f.rootToCount[root]
}

func (f *Forks) delete(root common.Hash) {
	f.mapMutex.Lock()
	defer f.mapMutex.Unlock()
	delete(f.rootToCount, root)
	// Note we use .Set instead of .Dec in case nothing
	// was deleted since nothing existed at the hash given.
	f.forksGauge.Set(float64(len(f.rootToCount)))
	f.deleteCounter.Inc()
}

// len returns the current number of tracked fork roots.
func (f *Forks) len() int {
	f.mapMutex.RLock()
	defer f.mapMutex.RUnlock()
	return len(f.rootToCount)
}
