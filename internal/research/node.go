// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/equity-research/internal/extract"
	"github.com/pdiddy/equity-research/internal/prompt"
	"github.com/pdiddy/equity-research/pkg/types"
)

// NodeResult is what one node execution produced.
type NodeResult struct {
	Findings          []string
	Reasoning         string
	SearchResultsUsed int
}

// NodeRunner executes a single research node.
type NodeRunner interface {
	Execute(ctx context.Context, ticker string, lang types.Language, node types.ResearchNode, emit Emit) (NodeResult, types.TokenUsage)
}

// NodeExecutor searches every question of a node concurrently, extracts
// facts from the combined results and reasons about them. It never fails:
// a node that finds nothing simply has no findings.
type NodeExecutor struct {
	Caps *Capabilities
}

// Execute runs node and returns its findings and reasoning.
func (e *NodeExecutor) Execute(ctx context.Context, ticker string, lang types.Language, node types.ResearchNode, emit Emit) (NodeResult, types.TokenUsage) {
	if emit == nil {
		emit = discard
	}
	log := e.Caps.logger().With(zap.String("ticker", ticker), zap.String("node", node.ID))
	emit(types.NewLog(types.LogMissionStart, fmt.Sprintf("Investigating %s", node.StepName), map[string]string{"nodeId": node.ID}))

	result := NodeResult{Findings: []string{}}
	var usage types.TokenUsage

	results := e.searchAll(ctx, node, emit, log)
	var used []types.SearchResult
	for _, rs := range results {
		for _, r := range rs {
			if strings.TrimSpace(r.Content) != "" {
				used = append(used, r)
			}
		}
	}
	result.SearchResultsUsed = len(used)
	if len(used) == 0 {
		log.Debug("no search content, node has no findings")
		return result, usage
	}

	factsPrompt, err := prompt.Facts(ticker, lang, node, combine(used))
	if err != nil {
		log.Warn("rendering facts prompt", zap.Error(err))
		return result, usage
	}
	gen, err := e.Caps.generate(ctx, factsPrompt)
	if err != nil {
		log.Warn("fact extraction call failed", zap.Error(err))
		return result, usage
	}
	usage = usage.Add(gen.Usage)
	parsed := extract.ParseFacts(gen.Text)
	if !parsed.IsOk() {
		log.Warn("fact extraction reply unusable", zap.Error(parsed.Err()))
	}
	result.Findings = parsed.Or([]string{})
	if len(result.Findings) == 0 {
		return result, usage
	}

	result.Reasoning = fallbackReasoning(len(result.Findings), node.Intent)
	reasoningPrompt, err := prompt.Reasoning(ticker, lang, node, result.Findings)
	if err != nil {
		log.Warn("rendering reasoning prompt", zap.Error(err))
		return result, usage
	}
	gen, err = e.Caps.generate(ctx, reasoningPrompt)
	if err != nil {
		log.Warn("reasoning call failed, using fallback", zap.Error(err))
		return result, usage
	}
	usage = usage.Add(gen.Usage)
	if text := strings.TrimSpace(gen.Text); text != "" {
		result.Reasoning = text
	}
	return result, usage
}

// searchAll issues every question concurrently and waits for all of them.
// Failed queries contribute no results.
func (e *NodeExecutor) searchAll(ctx context.Context, node types.ResearchNode, emit Emit, log *zap.Logger) [][]types.SearchResult {
	out := make([][]types.SearchResult, len(node.Questions))
	var g errgroup.Group
	for i, q := range node.Questions {
		g.Go(func() error {
			emit(types.NewLog(types.LogSearchQuery, fmt.Sprintf("Searching: %s", q), types.SearchLogData{NodeID: node.ID, Query: q}))
			rs, err := e.Caps.search(ctx, q)
			if err != nil {
				log.Warn("search failed", zap.String("query", q), zap.Error(err))
				emit(types.NewLog(types.LogSearchResults, fmt.Sprintf("Search failed: %s", q), types.SearchLogData{NodeID: node.ID, Query: q, Error: err.Error()}))
				return nil
			}
			out[i] = rs
			emit(types.NewLog(types.LogSearchResults, fmt.Sprintf("Found %d results for: %s", len(rs), q), types.SearchLogData{NodeID: node.ID, Query: q, Count: len(rs)}))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func combine(results []types.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s", i+1, r.Title, r.Link, strings.TrimSpace(r.Content))
	}
	return b.String()
}

func fallbackReasoning(n int, intent string) string {
	return fmt.Sprintf("Found %d facts related to %s.", n, strings.TrimSuffix(strings.TrimSpace(intent), "."))
}
