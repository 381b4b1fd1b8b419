// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the equity-research pipeline:
// the research plan (TopicChain, ResearchNode), its aggregate progress
// (Investigation), the synthesized Report, the streaming protocol records
// (StreamLog, State) and token accounting.
package types

import "slices"

// Language selects the output language of prompts and generated text.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "cn"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LanguageEnglish || l == LanguageChinese
}

// ResearchNode is one investigation step inside a TopicChain. Findings and
// Reasoning are empty until the node executes; a node is written exactly once.
type ResearchNode struct {
	// ID is unique within a chain: topic-{t}-node-{n}, both one-based.
	ID string `json:"id" yaml:"id"`

	StepName string `json:"stepName" yaml:"step_name"`

	// Intent explains why the step exists; reasoning is tied back to it.
	Intent string `json:"intent" yaml:"intent"`

	// Questions are the search queries issued for this step, fixed at planning time.
	Questions []string `json:"questions" yaml:"questions"`

	Findings  []string `json:"findings" yaml:"findings"`
	Reasoning string   `json:"reasoning" yaml:"reasoning"`

	// NextLogicStep is an informational hint from the planner. It is never
	// used to re-plan later steps.
	NextLogicStep string `json:"nextLogicStep,omitempty" yaml:"next_logic_step,omitempty"`
}

// Completed reports whether the node produced at least one finding.
func (n ResearchNode) Completed() bool {
	return len(n.Findings) > 0
}

// TopicChain is a named, ordered sequence of nodes for one research topic.
type TopicChain struct {
	Topic string         `json:"topic" yaml:"topic"`
	Nodes []ResearchNode `json:"nodes" yaml:"nodes"`
}

// CompletedNodes counts nodes with findings.
func (c TopicChain) CompletedNodes() int {
	n := 0
	for _, node := range c.Nodes {
		if node.Completed() {
			n++
		}
	}
	return n
}

// Progress returns completedNodes / totalNodes, or 0 for an empty chain.
func (c TopicChain) Progress() float64 {
	if len(c.Nodes) == 0 {
		return 0
	}
	return float64(c.CompletedNodes()) / float64(len(c.Nodes))
}

// Clone returns a deep copy so published snapshots never alias executor state.
func (c TopicChain) Clone() TopicChain {
	out := TopicChain{Topic: c.Topic, Nodes: make([]ResearchNode, len(c.Nodes))}
	for i, n := range c.Nodes {
		n.Questions = slices.Clone(n.Questions)
		n.Findings = slices.Clone(n.Findings)
		out.Nodes[i] = n
	}
	return out
}

// Investigation aggregates every chain researched for one ticker. The counts
// are derived; build it with NewInvestigation rather than by hand.
type Investigation struct {
	Ticker         string       `json:"ticker" yaml:"ticker"`
	TopicChains    []TopicChain `json:"topicChains" yaml:"topic_chains"`
	TotalNodes     int          `json:"totalNodes" yaml:"total_nodes"`
	CompletedNodes int          `json:"completedNodes" yaml:"completed_nodes"`
}

// NewInvestigation builds an Investigation and computes its node counts.
func NewInvestigation(ticker string, chains []TopicChain) Investigation {
	inv := Investigation{Ticker: ticker, TopicChains: chains}
	for _, c := range chains {
		inv.TotalNodes += len(c.Nodes)
		inv.CompletedNodes += c.CompletedNodes()
	}
	return inv
}

// Facts returns every finding across all chains in chain, node order.
func (inv Investigation) Facts() []string {
	var facts []string
	for _, c := range inv.TopicChains {
		for _, n := range c.Nodes {
			facts = append(facts, n.Findings...)
		}
	}
	return facts
}
