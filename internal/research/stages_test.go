// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equity-research/internal/gate"
	"github.com/pdiddy/equity-research/pkg/types"
)

// logSink collects emitted logs.
type logSink struct {
	mu   sync.Mutex
	logs []types.StreamLog
}

func (s *logSink) emit(l types.StreamLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
}

func (s *logSink) ofType(t types.LogType) []types.StreamLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.StreamLog
	for _, l := range s.logs {
		if l.Type == t {
			out = append(out, l)
		}
	}
	return out
}

func TestPlannerParsesPlan(t *testing.T) {
	sink := &logSink{}
	p := &Planner{Caps: testCaps(aaplGenerator(), &mockSearcher{}, 5)}

	chains, usage, err := p.Plan(context.Background(), "AAPL", types.LanguageEnglish, sink.emit)

	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "Financial Health", chains[0].Topic)
	require.Len(t, chains[0].Nodes, 2)
	assert.Equal(t, "topic-1-node-2", chains[0].Nodes[1].ID)
	assert.Empty(t, chains[0].Nodes[0].Findings)
	assert.Empty(t, chains[0].Nodes[0].Reasoning)
	assert.Equal(t, 110, usage.Total())

	plans := sink.ofType(types.LogPlan)
	require.Len(t, plans, 2)
	var data types.PlanLogData
	require.True(t, plans[1].DecodeData(&data))
	assert.Equal(t, 1, data.Topics)
	assert.Equal(t, 2, data.Steps)
	assert.False(t, data.Fallback)
}

func TestPlannerFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *mockGenerator
	}{
		{"non-JSON reply", &mockGenerator{plan: "I cannot help with that."}},
		{"missing fields", &mockGenerator{plan: `{"topics": [{"topic": "X", "steps": [{"intent": "no name"}]}]}`}},
		{"generation error", &mockGenerator{planErr: errors.New("503")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &logSink{}
			p := &Planner{Caps: testCaps(tc.gen, &mockSearcher{}, 5)}

			chains, _, err := p.Plan(context.Background(), "TSLA", types.LanguageEnglish, sink.emit)

			require.NoError(t, err)
			require.NotEmpty(t, chains)
			assert.Equal(t, FallbackChains("TSLA"), chains)
			assert.Contains(t, chains[0].Nodes[0].Questions[0], "TSLA")

			var data types.PlanLogData
			plans := sink.ofType(types.LogPlan)
			require.Len(t, plans, 2)
			require.True(t, plans[1].DecodeData(&data))
			assert.True(t, data.Fallback)
		})
	}
}

func TestFallbackChainsIDs(t *testing.T) {
	chains := FallbackChains("AAPL")
	require.Len(t, chains, 1)
	for i, n := range chains[0].Nodes {
		assert.Equal(t, fmt.Sprintf("topic-1-node-%d", i+1), n.ID)
		assert.NotEmpty(t, n.Questions)
	}
}

func testNode() types.ResearchNode {
	return types.ResearchNode{
		ID:        "topic-1-node-1",
		StepName:  "Revenue",
		Intent:    "Size revenue",
		Questions: []string{"AAPL revenue", "AAPL services revenue"},
		Findings:  []string{},
	}
}

func TestNodeExecutor(t *testing.T) {
	sink := &logSink{}
	gen := aaplGenerator()
	e := &NodeExecutor{Caps: testCaps(gen, &mockSearcher{content: "Apple revenue $90B Q3"}, 5)}

	res, usage := e.Execute(context.Background(), "AAPL", types.LanguageEnglish, testNode(), sink.emit)

	assert.Equal(t, []string{"Apple Q3 revenue was $90B"}, res.Findings)
	assert.Equal(t, "Revenue grew.", res.Reasoning)
	assert.Equal(t, 2, res.SearchResultsUsed)
	assert.Equal(t, 220, usage.Total())
	assert.Len(t, sink.ofType(types.LogMissionStart), 1)
	assert.Len(t, sink.ofType(types.LogSearchQuery), 2)
	assert.Len(t, sink.ofType(types.LogSearchResults), 2)
}

func TestNodeExecutorDegrades(t *testing.T) {
	tests := []struct {
		name          string
		gen           *mockGenerator
		searcher      *mockSearcher
		wantFindings  []string
		wantReasoning string
		wantFacts     int
		wantReasonRun int
	}{
		{
			name:         "all searches fail",
			gen:          aaplGenerator(),
			searcher:     &mockSearcher{content: "x", fail: map[string]bool{"AAPL revenue": true, "AAPL services revenue": true}},
			wantFindings: []string{},
		},
		{
			name:         "results without content",
			gen:          aaplGenerator(),
			searcher:     &mockSearcher{content: "   "},
			wantFindings: []string{},
		},
		{
			name:         "facts reply malformed",
			gen:          &mockGenerator{facts: "no facts found"},
			searcher:     &mockSearcher{content: "x"},
			wantFindings: []string{},
			wantFacts:    1,
		},
		{
			name:         "facts call fails",
			gen:          &mockGenerator{factsErr: errors.New("timeout")},
			searcher:     &mockSearcher{content: "x"},
			wantFindings: []string{},
			wantFacts:    1,
		},
		{
			name:          "reasoning call fails",
			gen:           &mockGenerator{facts: `["a", "b"]`, reasonErr: errors.New("timeout")},
			searcher:      &mockSearcher{content: "x"},
			wantFindings:  []string{"a", "b"},
			wantReasoning: "Found 2 facts related to Size revenue.",
			wantFacts:     1,
			wantReasonRun: 1,
		},
		{
			name:          "reasoning reply empty",
			gen:           &mockGenerator{facts: `["a"]`, reasoning: "  "},
			searcher:      &mockSearcher{content: "x"},
			wantFindings:  []string{"a"},
			wantReasoning: "Found 1 facts related to Size revenue.",
			wantFacts:     1,
			wantReasonRun: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := &NodeExecutor{Caps: testCaps(tc.gen, tc.searcher, 5)}

			res, _ := e.Execute(context.Background(), "AAPL", types.LanguageEnglish, testNode(), nil)

			assert.Equal(t, tc.wantFindings, res.Findings)
			assert.Equal(t, tc.wantReasoning, res.Reasoning)
			assert.Equal(t, tc.wantFacts, tc.gen.callsOf("facts"))
			assert.Equal(t, tc.wantReasonRun, tc.gen.callsOf("reasoning"))
		})
	}
}

func TestNodeExecutorSearchesConcurrently(t *testing.T) {
	tracker := &inFlight{}
	node := testNode()
	node.Questions = []string{"q1", "q2", "q3", "q4"}
	s := &mockSearcher{content: "x", tracker: tracker, delay: 20 * time.Millisecond}
	e := &NodeExecutor{Caps: testCaps(aaplGenerator(), s, 5)}

	e.Execute(context.Background(), "AAPL", types.LanguageEnglish, node, nil)

	assert.Greater(t, tracker.max.Load(), int64(1))
	assert.Equal(t, int64(4), s.count.Load())
}

// orderedRunner records start and end of each node. Later nodes run faster
// so an overlapping schedule would show up as an interleaving.
type orderedRunner struct {
	mu     sync.Mutex
	events []string
}

func (r *orderedRunner) Execute(ctx context.Context, ticker string, lang types.Language, node types.ResearchNode, emit Emit) (NodeResult, types.TokenUsage) {
	r.record("start " + node.ID)
	delay := map[string]time.Duration{"A": 5 * time.Millisecond, "B": 20 * time.Millisecond, "C": time.Millisecond}[node.ID]
	time.Sleep(delay)
	r.record("end " + node.ID)
	return NodeResult{Findings: []string{"fact " + node.ID}, Reasoning: "r"}, types.TokenUsage{InputTokens: 1, OutputTokens: 1}
}

func (r *orderedRunner) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestChainExecutorRunsNodesInOrder(t *testing.T) {
	runner := &orderedRunner{}
	sink := &logSink{}
	c := &ChainExecutor{Nodes: runner}
	chain := types.TopicChain{Topic: "Growth", Nodes: []types.ResearchNode{{ID: "A"}, {ID: "B"}, {ID: "C"}}}

	out, usage, err := c.Execute(context.Background(), "AAPL", types.LanguageEnglish, chain, sink.emit)

	require.NoError(t, err)
	assert.Equal(t, []string{"start A", "end A", "start B", "end B", "start C", "end C"}, runner.events)
	assert.Equal(t, 3, out.CompletedNodes())
	assert.Equal(t, 6, usage.Total())
	assert.Empty(t, chain.Nodes[0].Findings, "input chain is not mutated")

	progress := sink.ofType(types.LogAnalysisProgress)
	require.Len(t, progress, 3)
	var d types.ProgressLogData
	require.True(t, progress[2].DecodeData(&d))
	assert.Equal(t, 3, d.Done)
	assert.Equal(t, "C", d.Node.ID)
	assert.Len(t, sink.ofType(types.LogMissionStart), 1)
}

func TestChainExecutorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &ChainExecutor{Nodes: &orderedRunner{}}

	_, _, err := c.Execute(ctx, "AAPL", types.LanguageEnglish, types.TopicChain{Topic: "T", Nodes: []types.ResearchNode{{ID: "A"}}}, nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func executedChains() []types.TopicChain {
	return []types.TopicChain{
		{Topic: "Financial Health", Nodes: []types.ResearchNode{
			{ID: "topic-1-node-1", Findings: []string{"f1", "f2"}, Reasoning: "Revenue grew."},
			{ID: "topic-1-node-2", Findings: []string{}},
		}},
		{Topic: "Competition", Nodes: []types.ResearchNode{
			{ID: "topic-2-node-1", Findings: []string{"f3"}, Reasoning: "Peers lag."},
		}},
	}
}

func TestSynthesizer(t *testing.T) {
	sink := &logSink{}
	gen := aaplGenerator()
	s := &Synthesizer{Caps: testCaps(gen, &mockSearcher{}, 5)}

	report, usage, err := s.Synthesize(context.Background(), "AAPL", types.LanguageEnglish, executedChains(), types.Quote{Price: 190}, sink.emit)

	require.NoError(t, err)
	assert.Equal(t, "Accumulate AAPL on services strength.", report.Verdict)
	require.Len(t, report.CompetitorMatrix, 1)
	assert.Equal(t, 110, usage.Total())

	finals := sink.ofType(types.LogFinalReport)
	require.Len(t, finals, 1)
	var logged types.Report
	require.True(t, finals[0].DecodeData(&logged))
	assert.Equal(t, report.Verdict, logged.Verdict)
}

func TestSynthesizerFallbackReport(t *testing.T) {
	sink := &logSink{}
	gen := &mockGenerator{synthesis: `{"narrativeArc": "truncated`}
	s := &Synthesizer{Caps: testCaps(gen, &mockSearcher{}, 5)}

	report, _, err := s.Synthesize(context.Background(), "AAPL", types.LanguageEnglish, executedChains(), types.Quote{}, sink.emit)

	require.NoError(t, err)
	assert.Contains(t, report.Verdict, "AAPL")
	assert.Contains(t, report.Verdict, "3 facts")
	assert.NotNil(t, report.CompetitorMatrix)
	assert.Len(t, sink.ofType(types.LogFinalReport), 1)
}

// promptCapture records the synthesis prompt.
type promptCapture struct {
	prompt string
}

func (p *promptCapture) Generate(ctx context.Context, prompt, model string) (types.Generation, error) {
	p.prompt = prompt
	return types.Generation{Text: aaplReport}, nil
}

func TestSynthesizerCapsFacts(t *testing.T) {
	var findings []string
	for i := 0; i < 8; i++ {
		findings = append(findings, fmt.Sprintf("fact-%d", i))
	}
	chains := []types.TopicChain{{Topic: "T", Nodes: []types.ResearchNode{{ID: "n", Findings: findings}}}}
	gen := &promptCapture{}
	s := &Synthesizer{Caps: &Capabilities{Generator: gen, CallGate: gate.New(CallGate, 1)}, MaxFacts: 5}

	_, _, err := s.Synthesize(context.Background(), "AAPL", types.LanguageEnglish, chains, types.Quote{}, nil)

	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "- fact-4")
	assert.NotContains(t, gen.prompt, "- fact-5")
	assert.Contains(t, gen.prompt, "(3 more facts")
	assert.Contains(t, gen.prompt, "- T: 1 steps")
}
