// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research runs an equity investigation: it plans topic chains,
// executes each chain's nodes in order, synthesizes a report and streams
// full state snapshots while it works.
//
// Stages never fail on a single bad search or unparseable model reply. They
// substitute a default, log a warning and carry on. Only context
// cancellation, quote failure and synthesis generation failure end a run in
// the error state.
package research

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/internal/gate"
	"github.com/pdiddy/equity-research/internal/llm"
	"github.com/pdiddy/equity-research/internal/metrics"
	"github.com/pdiddy/equity-research/internal/search"
	"github.com/pdiddy/equity-research/pkg/types"
)

// Emit records one StreamLog event. Implementations must be safe for
// concurrent use; nodes emit from several goroutines.
type Emit func(types.StreamLog)

func discard(types.StreamLog) {}

// Capabilities bundles the external clients the stages call. Every
// generation and search call holds a CallGate slot while in flight.
type Capabilities struct {
	Generator llm.Generator
	Searcher  search.Searcher
	CallGate  *gate.Gate
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	// Model overrides the provider's default model when set.
	Model string

	MaxSearchResults int
}

func (c *Capabilities) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// generate runs one gated generation call.
func (c *Capabilities) generate(ctx context.Context, prompt string) (types.Generation, error) {
	if err := c.CallGate.Acquire(ctx); err != nil {
		return types.Generation{}, err
	}
	defer c.CallGate.Release()

	gen, err := c.Generator.Generate(ctx, prompt, c.Model)
	c.Metrics.ObserveCall(metrics.KindGenerate, err)
	if err != nil {
		return types.Generation{}, fmt.Errorf("generating: %w", err)
	}
	c.Metrics.ObserveUsage(gen.Usage)
	return gen, nil
}

// search runs one gated search call.
func (c *Capabilities) search(ctx context.Context, query string) ([]types.SearchResult, error) {
	if err := c.CallGate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.CallGate.Release()

	max := c.MaxSearchResults
	if max <= 0 {
		max = 5
	}
	results, err := c.Searcher.Search(ctx, query, max)
	c.Metrics.ObserveCall(metrics.KindSearch, err)
	return results, err
}
