// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate provides named concurrency gates. A run composes two of them:
// the call gate bounds in-flight generation and search calls, the chain gate
// bounds concurrently executing topic chains.
package gate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"
)

// Gate bounds concurrent holders to a fixed limit. Acquire honours context
// cancellation, so an abandoned run stops queueing work.
type Gate struct {
	name     string
	limit    int
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
	gauge    prometheus.Gauge
}

// Option configures a Gate.
type Option func(*Gate)

// WithGauge reports the number of current holders to g.
func WithGauge(g prometheus.Gauge) Option {
	return func(gt *Gate) { gt.gauge = g }
}

// New creates a gate. A limit below 1 is raised to 1.
func New(name string, limit int, opts ...Option) *Gate {
	if limit < 1 {
		limit = 1
	}
	g := &Gate{name: name, limit: limit, sem: semaphore.NewWeighted(int64(limit))}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Name returns the gate name.
func (g *Gate) Name() string { return g.name }

// Limit returns the maximum number of concurrent holders.
func (g *Gate) Limit() int { return g.limit }

// Peak returns the highest number of concurrent holders observed.
func (g *Gate) Peak() int { return int(g.peak.Load()) }

// Acquire blocks until a slot is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%s gate: %w", g.name, err)
	}
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if g.gauge != nil {
		g.gauge.Inc()
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	if g.gauge != nil {
		g.gauge.Dec()
	}
	g.sem.Release(1)
}

// Do runs fn while holding a slot.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}
