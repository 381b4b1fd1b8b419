// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/equity-research/internal/gate"
	"github.com/pdiddy/equity-research/internal/llm"
	"github.com/pdiddy/equity-research/internal/metrics"
	"github.com/pdiddy/equity-research/internal/quote"
	"github.com/pdiddy/equity-research/internal/search"
	"github.com/pdiddy/equity-research/pkg/types"
)

// Gate names.
const (
	CallGate  = "calls"
	ChainGate = "chains"
)

// Publisher receives a full state snapshot on every change. Publish is
// called with the run's state lock held, so calls never overlap. The
// snapshot shares slices with the run and must not be retained.
type Publisher interface {
	Publish(types.State) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(types.State) error

// Publish calls f(s).
func (f PublisherFunc) Publish(s types.State) error { return f(s) }

// Saver persists a finished run and returns its id.
type Saver interface {
	Save(ctx context.Context, report types.Report, inv types.Investigation, tokens types.TokenUsage) (string, error)
}

// Deps are the collaborators of an Orchestrator. Gates left nil are built
// from the research config.
type Deps struct {
	Generator llm.Generator
	Searcher  search.Searcher
	Quotes    quote.Provider
	Store     Saver
	CallGate  *gate.Gate
	ChainGate *gate.Gate
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Orchestrator drives a run through initializing, planning, researching and
// a terminal completed or error state.
type Orchestrator struct {
	Planner     *Planner
	Chains      *ChainExecutor
	Synthesizer *Synthesizer
	Quotes      quote.Provider
	Store       Saver
	ChainGate   *gate.Gate
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

// New wires an Orchestrator from configuration and collaborators.
func New(cfg types.ResearchConfig, d Deps) *Orchestrator {
	cfg = cfg.WithDefaults()
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.CallGate == nil {
		d.CallGate = gate.New(CallGate, cfg.CallConcurrency, gate.WithGauge(d.Metrics.Gauge(CallGate)))
	}
	if d.ChainGate == nil {
		d.ChainGate = gate.New(ChainGate, cfg.ChainConcurrency, gate.WithGauge(d.Metrics.Gauge(ChainGate)))
	}
	caps := &Capabilities{
		Generator:        d.Generator,
		Searcher:         d.Searcher,
		CallGate:         d.CallGate,
		Logger:           d.Logger,
		Metrics:          d.Metrics,
		Model:            cfg.Model,
		MaxSearchResults: cfg.MaxSearchResults,
	}
	return &Orchestrator{
		Planner:     &Planner{Caps: caps},
		Chains:      &ChainExecutor{Nodes: &NodeExecutor{Caps: caps}},
		Synthesizer: &Synthesizer{Caps: caps, MaxFacts: cfg.MaxFactsInSynthesis},
		Quotes:      d.Quotes,
		Store:       d.Store,
		ChainGate:   d.ChainGate,
		Logger:      d.Logger,
		Metrics:     d.Metrics,
	}
}

// Run researches ticker and returns the terminal state. Every change is
// published to pub as a full snapshot. Run reports failures through the
// returned state, never as a Go error.
func (o *Orchestrator) Run(ctx context.Context, ticker string, lang types.Language, pub Publisher) types.State {
	r := &run{
		pub: pub,
		log: o.Logger.With(zap.String("ticker", ticker), zap.String("lang", string(lang))),
		state: types.State{
			Status:          types.StatusInitializing,
			CompletedChains: []types.TopicChain{},
			Logs:            []types.StreamLog{},
		},
	}
	r.emit(types.NewLog(types.LogPlan, fmt.Sprintf("Starting research on %s", ticker), nil))

	if err := o.research(ctx, r, ticker, lang); err != nil {
		r.fail(err)
	}
	final := r.snapshot()
	o.Metrics.ObserveRun(final.Status)
	return final
}

func (o *Orchestrator) research(ctx context.Context, r *run, ticker string, lang types.Language) error {
	r.transition(types.StatusPlanning)
	chains, usage, err := o.Planner.Plan(ctx, ticker, lang, r.emit)
	r.addUsage(usage)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	r.setPlan(chains)
	r.transition(types.StatusResearching)

	q, err := o.Quotes.GetQuote(ctx, ticker)
	o.Metrics.ObserveCall(metrics.KindQuote, err)
	if err != nil {
		return fmt.Errorf("fetching quote: %w", err)
	}

	results := make([]types.TopicChain, len(chains))
	g, gctx := errgroup.WithContext(ctx)
	for i, chain := range chains {
		g.Go(func() error {
			if err := o.ChainGate.Acquire(gctx); err != nil {
				return err
			}
			defer o.ChainGate.Release()
			done, u, err := o.Chains.Execute(gctx, ticker, lang, chain, r.emit)
			if err != nil {
				// Nodes that ran before the failure still spent tokens.
				r.addUsage(u)
				return err
			}
			results[i] = done
			r.completeChain(done, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("researching: %w", err)
	}

	report, usage, err := o.Synthesizer.Synthesize(ctx, ticker, lang, results, q, r.emit)
	if err != nil {
		return err
	}
	r.addUsage(usage)
	inv := types.NewInvestigation(ticker, results)

	var reportID string
	if o.Store != nil {
		id, err := o.Store.Save(ctx, report, inv, r.totals())
		if err != nil {
			r.log.Warn("saving report failed, run still completes", zap.Error(err))
		} else {
			reportID = id
		}
	}
	r.complete(report, inv, reportID)
	return nil
}

// run holds the mutable state of one Run. mu guards state and serializes
// publishing, so concurrent chains append rather than overwrite.
type run struct {
	mu    sync.Mutex
	state types.State
	usage types.TokenUsage
	pub   Publisher
	log   *zap.Logger
}

func (r *run) emit(l types.StreamLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Logs = append(r.state.Logs, l)
	r.publishLocked()
}

func (r *run) transition(s types.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Status = s
	r.publishLocked()
}

func (r *run) setPlan(chains []types.TopicChain) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Plan = make([]types.TopicChain, len(chains))
	for i, c := range chains {
		r.state.Plan[i] = c.Clone()
	}
}

func (r *run) addUsage(u types.TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = r.usage.Add(u)
	total := r.usage
	r.state.TotalTokens = &total
}

func (r *run) totals() types.TokenUsage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}

func (r *run) completeChain(c types.TopicChain, u types.TokenUsage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usage = r.usage.Add(u)
	total := r.usage
	r.state.TotalTokens = &total
	r.state.CompletedChains = append(r.state.CompletedChains, c.Clone())
	r.publishLocked()
}

func (r *run) complete(report types.Report, inv types.Investigation, reportID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := r.usage
	r.state.TotalTokens = &total
	r.state.Report = &report
	r.state.Investigation = &inv
	r.state.ReportID = reportID
	r.state.Status = types.StatusCompleted
	r.log.Info("research completed",
		zap.Int("total_nodes", inv.TotalNodes),
		zap.Int("completed_nodes", inv.CompletedNodes),
		zap.Int("tokens", total.Total()),
		zap.String("report_id", reportID))
	r.publishLocked()
}

// fail moves the run to the error state. Partial progress stays in state.
func (r *run) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := err.Error()
	if errors.Is(err, context.Canceled) {
		msg = "research cancelled: " + msg
	}
	r.log.Error("research failed", zap.Error(err))
	total := r.usage
	r.state.TotalTokens = &total
	r.state.Status = types.StatusError
	r.state.Error = msg
	r.state.Logs = append(r.state.Logs, types.NewLog(types.LogFinalReport, "Research failed: "+msg, nil))
	r.publishLocked()
}

func (r *run) publishLocked() {
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(r.state); err != nil {
		r.log.Warn("publishing snapshot", zap.Error(err))
	}
}

// snapshot returns a copy of the state that shares nothing mutable with
// the run.
func (r *run) snapshot() types.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.state
	s.Logs = append(make([]types.StreamLog, 0, len(r.state.Logs)), r.state.Logs...)
	s.CompletedChains = append(make([]types.TopicChain, 0, len(r.state.CompletedChains)), r.state.CompletedChains...)
	if r.state.Plan != nil {
		s.Plan = append([]types.TopicChain(nil), r.state.Plan...)
	}
	return s
}
