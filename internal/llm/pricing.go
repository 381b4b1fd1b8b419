// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"strings"

	"github.com/pdiddy/equity-research/pkg/types"
)

// defaultPrices are USD per million tokens for commonly configured models.
var defaultPrices = map[string]types.ModelPrice{
	"claude-sonnet-4-5": {InputPerMillion: 3, OutputPerMillion: 15},
	"claude-haiku-4-5":  {InputPerMillion: 1, OutputPerMillion: 5},
	"gpt-4o":            {InputPerMillion: 2.5, OutputPerMillion: 10},
	"gpt-4o-mini":       {InputPerMillion: 0.15, OutputPerMillion: 0.6},
	"deepseek-chat":     {InputPerMillion: 0.27, OutputPerMillion: 1.1},
}

// PriceTable converts token counts into cost.
type PriceTable struct {
	prices map[string]types.ModelPrice
}

// NewPriceTable merges configured prices over the defaults.
func NewPriceTable(overrides map[string]types.ModelPrice) *PriceTable {
	p := make(map[string]types.ModelPrice, len(defaultPrices)+len(overrides))
	for k, v := range defaultPrices {
		p[k] = v
	}
	for k, v := range overrides {
		p[k] = v
	}
	return &PriceTable{prices: p}
}

// Usage builds a TokenUsage with its cost. Models are matched exactly, then
// by the longest known prefix (so dated snapshots inherit their family's
// price); unknown models cost zero.
func (t *PriceTable) Usage(model string, input, output int) types.TokenUsage {
	u := types.TokenUsage{InputTokens: input, OutputTokens: output}
	if t == nil {
		return u
	}
	price, ok := t.prices[model]
	if !ok {
		best := ""
		for name, p := range t.prices {
			if strings.HasPrefix(model, name) && len(name) > len(best) {
				best, price, ok = name, p, true
			}
		}
	}
	if ok {
		u.Cost = float64(input)*price.InputPerMillion/1e6 + float64(output)*price.OutputPerMillion/1e6
	}
	return u
}
