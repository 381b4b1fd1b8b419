// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/internal/extract"
	"github.com/pdiddy/equity-research/internal/prompt"
	"github.com/pdiddy/equity-research/internal/quote"
	"github.com/pdiddy/equity-research/pkg/types"
)

const defaultMaxFacts = 50

// Synthesizer writes the final report from the executed chains.
type Synthesizer struct {
	Caps *Capabilities

	// MaxFacts caps how many facts the prompt lists.
	MaxFacts int
}

// Synthesize makes one generation call and parses the report from its
// reply. An unusable reply yields FallbackReport; a failed generation call
// is returned as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, ticker string, lang types.Language, chains []types.TopicChain, q types.Quote, emit Emit) (types.Report, types.TokenUsage, error) {
	if emit == nil {
		emit = discard
	}
	inv := types.NewInvestigation(ticker, chains)
	facts := inv.Facts()

	limit := s.MaxFacts
	if limit <= 0 {
		limit = defaultMaxFacts
	}
	in := prompt.SynthesisInput{Ticker: ticker, Quote: quote.Summary(ticker, q)}
	for _, c := range chains {
		in.Topics = append(in.Topics, prompt.TopicSummary{Topic: c.Topic, Steps: len(c.Nodes)})
		for _, n := range c.Nodes {
			if r := strings.TrimSpace(n.Reasoning); r != "" {
				in.Reasoning = append(in.Reasoning, r)
			}
		}
	}
	in.Facts = facts
	if len(facts) > limit {
		in.Facts = facts[:limit]
		in.MoreFacts = len(facts) - limit
	}

	text, err := prompt.Synthesis(in, lang)
	if err != nil {
		return types.Report{}, types.TokenUsage{}, err
	}
	gen, err := s.Caps.generate(ctx, text)
	if err != nil {
		return types.Report{}, types.TokenUsage{}, fmt.Errorf("synthesizing report: %w", err)
	}

	parsed := extract.ParseReport(gen.Text)
	report, ok := parsed.Value()
	if !ok {
		s.Caps.logger().Warn("report reply unusable, using fallback report",
			zap.String("ticker", ticker), zap.Error(parsed.Err()))
		report = FallbackReport(ticker, len(facts), len(chains))
	}
	emit(types.NewLog(types.LogFinalReport, fmt.Sprintf("Report ready for %s", ticker), report))
	return report, gen.Usage, nil
}

// FallbackReport is the deterministic report used when synthesis output
// cannot be parsed. Its verdict names the ticker and the fact count.
func FallbackReport(ticker string, facts, chains int) types.Report {
	return types.Report{
		NarrativeArc:     fmt.Sprintf("Research on %s covered %d topics and collected %d facts, but the synthesis could not be structured.", ticker, chains, facts),
		CompetitorMatrix: []types.Competitor{},
		MarginalChanges:  "Not available.",
		Verdict:          fmt.Sprintf("No verdict for %s: automated synthesis failed after collecting %d facts across %d topics. Review the findings directly.", ticker, facts, chains),
	}
}
