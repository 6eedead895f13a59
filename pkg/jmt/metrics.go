// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package jmt

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records tree engine events.
type Metrics interface {
	ChangeSetComputed(changeSet *ChangeSet)
	CacheHit()
	CacheMiss()
}

// NoopMetrics discards all metrics.
type NoopMetrics struct{}

// ChangeSetComputed does nothing.
func (NoopMetrics) ChangeSetComputed(*ChangeSet) {}

// CacheHit does nothing.
func (NoopMetrics) CacheHit() {}

// CacheMiss does nothing.
func (NoopMetrics) CacheMiss() {}

// Prometheus implements Metrics with Prometheus counters.
type Prometheus struct {
	batches     prometheus.Counter
	nodesNew    prometheus.Counter
	nodesStale  prometheus.Counter
	leavesNew   prometheus.Counter
	leavesStale prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewPrometheus creates and registers the tree engine counters on the
// default Prometheus registerer. Counters already registered, for example
// by another tree, are reused.
func NewPrometheus() (metrics *Prometheus, err error) {
	metrics = new(Prometheus)

	counters := []struct {
		counter *prometheus.Counter
		name    string
		help    string
	}{
		{&metrics.batches, "batches_total", "number of update batches computed"},
		{&metrics.nodesNew, "nodes_new_total", "number of nodes created"},
		{&metrics.nodesStale, "nodes_stale_total", "number of nodes retired"},
		{&metrics.leavesNew, "leaves_new_total", "number of leaves created"},
		{&metrics.leavesStale, "leaves_stale_total", "number of leaves retired"},
		{&metrics.cacheHits, "cache_hits_total", "number of node cache hits"},
		{&metrics.cacheMisses, "cache_misses_total", "number of node cache misses"},
	}

	for _, c := range counters {
		counter := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jellyfish",
			Subsystem: "tree",
			Name:      c.name,
			Help:      c.help,
		})
		*c.counter, err = registerCounter(counter)
		if err != nil {
			return nil, fmt.Errorf("cannot register %s counter: %w", c.name, err)
		}
	}

	return metrics, nil
}

func registerCounter(counter prometheus.Counter) (registered prometheus.Counter, err error) {
	err = prometheus.Register(counter)
	if err == nil {
		return counter, nil
	}

	var alreadyRegistered prometheus.AlreadyRegisteredError
	if errors.As(err, &alreadyRegistered) {
		existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
		if ok {
			return existing, nil
		}
	}
	return nil, err
}

// ChangeSetComputed counts the nodes and leaves of the change set.
func (m *Prometheus) ChangeSetComputed(changeSet *ChangeSet) {
	m.batches.Inc()
	m.nodesNew.Add(float64(len(changeSet.NodeBatch)))
	m.nodesStale.Add(float64(len(changeSet.StaleNodeIndexBatch)))
	m.leavesNew.Add(float64(changeSet.NumNewLeaves))
	m.leavesStale.Add(float64(changeSet.NumStaleLeaves))
}

// CacheHit increments the cache hits counter.
func (m *Prometheus) CacheHit() { m.cacheHits.Inc() }

// CacheMiss increments the cache misses counter.
func (m *Prometheus) CacheMiss() { m.cacheMisses.Inc() }
