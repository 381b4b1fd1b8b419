// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"

	"github.com/pdiddy/equity-research/pkg/types"
)

// ChainExecutor runs the nodes of one topic chain strictly in order. Node
// k starts only after node k-1's result is recorded. Findings are not fed
// into later nodes; each node's questions were fixed at planning time.
type ChainExecutor struct {
	Nodes NodeRunner
}

// Execute runs every node of chain and returns the populated copy. It fails
// only when ctx is cancelled, returning the chain as far as it got.
func (c *ChainExecutor) Execute(ctx context.Context, ticker string, lang types.Language, chain types.TopicChain, emit Emit) (types.TopicChain, types.TokenUsage, error) {
	if emit == nil {
		emit = discard
	}
	out := chain.Clone()
	var usage types.TokenUsage
	emit(types.NewLog(types.LogMissionStart, fmt.Sprintf("Starting topic: %s", chain.Topic), map[string]string{"topic": chain.Topic}))

	for i := range out.Nodes {
		if err := ctx.Err(); err != nil {
			return out, usage, fmt.Errorf("topic %q: %w", chain.Topic, err)
		}
		res, u := c.Nodes.Execute(ctx, ticker, lang, out.Nodes[i], emit)
		usage = usage.Add(u)
		out.Nodes[i].Findings = res.Findings
		if out.Nodes[i].Findings == nil {
			out.Nodes[i].Findings = []string{}
		}
		out.Nodes[i].Reasoning = res.Reasoning

		emit(types.NewLog(types.LogAnalysisProgress,
			fmt.Sprintf("%s: completed %s (%d/%d)", chain.Topic, out.Nodes[i].StepName, i+1, len(out.Nodes)),
			types.ProgressLogData{Topic: chain.Topic, Node: out.Nodes[i], Done: i + 1, Total: len(out.Nodes)}))
	}
	return out, usage, nil
}
