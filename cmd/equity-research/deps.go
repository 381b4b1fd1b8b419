// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/pdiddy/equity-research/internal/llm"
	"github.com/pdiddy/equity-research/internal/metrics"
	"github.com/pdiddy/equity-research/internal/quote"
	"github.com/pdiddy/equity-research/internal/research"
	"github.com/pdiddy/equity-research/internal/search"
	"github.com/pdiddy/equity-research/internal/store"
	"github.com/pdiddy/equity-research/pkg/types"
)

// app holds the wired collaborators of one process.
type app struct {
	cfg          types.Config
	orchestrator *research.Orchestrator
	store        *store.Store
	metrics      *metrics.Metrics
}

// newApp wires every capability client from cfg. The store is opened
// unless persistence is disabled.
func newApp(cfg types.Config) (*app, error) {
	gen, err := llm.New(cfg.LLM, logger)
	if err != nil {
		return nil, err
	}
	searcher, err := search.New(cfg.Search, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	deps := research.Deps{
		Generator: gen,
		Searcher:  searcher,
		Quotes:    quote.NewYahoo(cfg.Quote),
		Logger:    logger,
		Metrics:   a.metrics,
	}
	if !cfg.Store.Disabled {
		s, err := store.Open(cfg.Store)
		if err != nil {
			return nil, err
		}
		a.store = s
		deps.Store = s
	}
	a.orchestrator = research.New(cfg.Research, deps)
	return a, nil
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
