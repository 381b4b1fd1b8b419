// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// TokenUsage accumulates token counts and cost across generation calls.
// Values only ever grow: combine deltas with Add.
type TokenUsage struct {
	InputTokens  int     `json:"inputTokens" yaml:"input_tokens"`
	OutputTokens int     `json:"outputTokens" yaml:"output_tokens"`
	Cost         float64 `json:"cost" yaml:"cost"`
}

// Add returns the sum of u and d.
func (u TokenUsage) Add(d TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + d.InputTokens,
		OutputTokens: u.OutputTokens + d.OutputTokens,
		Cost:         u.Cost + d.Cost,
	}
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}
