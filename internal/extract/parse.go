// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/equity-research/pkg/types"
)

// planResponse is the JSON shape the planner prompt asks for.
type planResponse struct {
	Topics []planTopic `json:"topics"`
}

type planTopic struct {
	Topic string     `json:"topic"`
	Steps []planStep `json:"steps"`
}

type planStep struct {
	StepName      string   `json:"step_name"`
	Intent        string   `json:"intent"`
	Questions     []string `json:"questions"`
	NextLogicStep string   `json:"next_logic_step"`
}

// NodeID formats the stable id of a planned node. Both indexes are zero-based.
func NodeID(topicIndex, nodeIndex int) string {
	return fmt.Sprintf("topic-%d-node-%d", topicIndex+1, nodeIndex+1)
}

// ParsePlan parses planner output into unexecuted topic chains. Steps
// without a name or any question and topics without a name or any valid
// step are dropped; if nothing survives the parse fails.
func ParsePlan(text string) Result[[]types.TopicChain] {
	const what = "plan"
	raw, ok := FirstJSONObject(text)
	if !ok {
		return Fail[[]types.TopicChain](what, "no JSON object in output")
	}
	var resp planResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return Fail[[]types.TopicChain](what, "invalid JSON: %v", err)
	}
	if len(resp.Topics) == 0 {
		return Fail[[]types.TopicChain](what, "missing topics")
	}

	var chains []types.TopicChain
	for _, t := range resp.Topics {
		name := strings.TrimSpace(t.Topic)
		if name == "" {
			continue
		}
		ti := len(chains)
		chain := types.TopicChain{Topic: name}
		for _, s := range t.Steps {
			questions := nonEmpty(s.Questions)
			if strings.TrimSpace(s.StepName) == "" || len(questions) == 0 {
				continue
			}
			chain.Nodes = append(chain.Nodes, types.ResearchNode{
				ID:            NodeID(ti, len(chain.Nodes)),
				StepName:      strings.TrimSpace(s.StepName),
				Intent:        strings.TrimSpace(s.Intent),
				Questions:     questions,
				Findings:      []string{},
				NextLogicStep: strings.TrimSpace(s.NextLogicStep),
			})
		}
		if len(chain.Nodes) > 0 {
			chains = append(chains, chain)
		}
	}
	if len(chains) == 0 {
		return Fail[[]types.TopicChain](what, "no topic has a complete step")
	}
	return Ok(chains)
}

// ParseFacts parses a JSON array of fact strings. An object with a "facts"
// array is accepted as well. Candidates are tried left to right, so source
// markers such as "[1]" echoed before the answer are passed over. Blank
// entries are dropped.
func ParseFacts(text string) Result[[]string] {
	const what = "facts"
	for raw := range JSONSpans(text, '[', ']') {
		var facts []string
		if err := json.Unmarshal([]byte(raw), &facts); err == nil {
			return Ok(nonEmpty(facts))
		}
	}
	for raw := range JSONSpans(text, '{', '}') {
		var wrapped struct {
			Facts []string `json:"facts"`
		}
		if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Facts != nil {
			return Ok(nonEmpty(wrapped.Facts))
		}
	}
	return Fail[[]string](what, "no JSON string array in output")
}

// reportFields are the keys a synthesized report must carry.
var reportFields = []string{"narrativeArc", "competitorMatrix", "financialReality", "marginalChanges", "verdict"}

// ParseReport parses and validates a synthesized report.
func ParseReport(text string) Result[types.Report] {
	const what = "report"
	raw, ok := FirstJSONObject(text)
	if !ok {
		return Fail[types.Report](what, "no JSON object in output")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Fail[types.Report](what, "invalid JSON: %v", err)
	}
	for _, f := range reportFields {
		if _, ok := fields[f]; !ok {
			return Fail[types.Report](what, "missing field %q", f)
		}
	}
	if !isJSONKind(fields["competitorMatrix"], '[') {
		return Fail[types.Report](what, "competitorMatrix is not a list")
	}
	if !isJSONKind(fields["financialReality"], '{') {
		return Fail[types.Report](what, "financialReality is not an object")
	}

	var report types.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return Fail[types.Report](what, "field types: %v", err)
	}
	if report.CompetitorMatrix == nil {
		report.CompetitorMatrix = []types.Competitor{}
	}
	return Ok(report)
}

func isJSONKind(raw json.RawMessage, first byte) bool {
	s := strings.TrimSpace(string(raw))
	return len(s) > 0 && s[0] == first
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
