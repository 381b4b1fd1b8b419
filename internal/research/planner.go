// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/internal/extract"
	"github.com/pdiddy/equity-research/internal/prompt"
	"github.com/pdiddy/equity-research/pkg/types"
)

// Planner turns a ticker into unexecuted topic chains with one generation call.
type Planner struct {
	Caps *Capabilities
}

// Plan returns the topic chains for ticker. An unusable model reply or a
// failed generation call yields FallbackChains; only context cancellation
// is returned as an error.
func (p *Planner) Plan(ctx context.Context, ticker string, lang types.Language, emit Emit) ([]types.TopicChain, types.TokenUsage, error) {
	if emit == nil {
		emit = discard
	}
	log := p.Caps.logger().With(zap.String("ticker", ticker))
	emit(types.NewLog(types.LogPlan, fmt.Sprintf("Planning research topics for %s", ticker), nil))

	text, err := prompt.Plan(ticker, lang)
	if err != nil {
		return nil, types.TokenUsage{}, err
	}

	var usage types.TokenUsage
	res := extract.Fail[[]types.TopicChain]("plan", "no reply")
	gen, err := p.Caps.generate(ctx, text)
	if err == nil {
		usage = gen.Usage
	}
	switch {
	case ctx.Err() != nil:
		return nil, usage, ctx.Err()
	case err != nil:
		log.Warn("planning call failed, using fallback plan", zap.Error(err))
	default:
		res = extract.ParsePlan(gen.Text)
		if !res.IsOk() {
			log.Warn("plan reply unusable, using fallback plan", zap.Error(res.Err()))
		}
	}

	chains, ok := res.Value()
	if !ok {
		chains = FallbackChains(ticker)
	}

	steps := 0
	for _, c := range chains {
		steps += len(c.Nodes)
	}
	data := types.PlanLogData{Ticker: ticker, Topics: len(chains), Steps: steps, Fallback: !ok}
	for _, c := range chains {
		data.Chains = append(data.Chains, c.Clone())
	}
	emit(types.NewLog(types.LogPlan, fmt.Sprintf("Planned %d topics with %d steps", len(chains), steps), data))
	log.Debug("plan ready", zap.Int("topics", len(chains)), zap.Int("steps", steps), zap.Bool("fallback", !ok))
	return chains, usage, nil
}

// FallbackChains is the predefined single-topic plan used when planning
// produces nothing usable.
func FallbackChains(ticker string) []types.TopicChain {
	steps := []struct{ name, intent, question, next string }{
		{
			"Business Overview",
			"Understand what the company sells and how it makes money",
			"%s business model revenue segments",
			"Check how the business is performing financially",
		},
		{
			"Financial Performance",
			"Establish the current revenue, margin and cash flow trend",
			"%s latest quarterly earnings revenue net income",
			"Compare the company against its competitors",
		},
		{
			"Competitive Position",
			"Identify the main competitors and the company's edge over them",
			"%s competitors market share",
			"",
		},
	}
	chain := types.TopicChain{Topic: "Company Overview"}
	for i, s := range steps {
		chain.Nodes = append(chain.Nodes, types.ResearchNode{
			ID:            extract.NodeID(0, i),
			StepName:      s.name,
			Intent:        s.intent,
			Questions:     []string{fmt.Sprintf(s.question, ticker)},
			Findings:      []string{},
			NextLogicStep: s.next,
		})
	}
	return []types.TopicChain{chain}
}
