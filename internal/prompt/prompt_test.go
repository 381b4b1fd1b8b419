// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equity-research/pkg/types"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		lang types.Language
		want string
	}{
		{"english", types.LanguageEnglish, "in English"},
		{"chinese", types.LanguageChinese, "Simplified Chinese"},
		{"unknown falls back", types.Language("fr"), "in English"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Plan("AAPL", tc.lang)
			require.NoError(t, err)
			assert.Contains(t, got, "AAPL")
			assert.Contains(t, got, "5 to 7 research topics")
			assert.Contains(t, got, `"step_name"`)
			assert.Contains(t, got, tc.want)
		})
	}
}

func TestFactsAndReasoning(t *testing.T) {
	node := types.ResearchNode{StepName: "Revenue mix", Intent: "Size the services business"}

	facts, err := Facts("AAPL", types.LanguageEnglish, node, "Apple revenue $90B Q3")
	require.NoError(t, err)
	assert.Contains(t, facts, "Revenue mix")
	assert.Contains(t, facts, "Size the services business")
	assert.Contains(t, facts, "Apple revenue $90B Q3")
	assert.Contains(t, facts, "JSON array of strings")

	reasoning, err := Reasoning("AAPL", types.LanguageEnglish, node, []string{"fact one", "fact two"})
	require.NoError(t, err)
	assert.Contains(t, reasoning, "- fact one\n- fact two\n")
	assert.Contains(t, reasoning, "2 to 3 sentences")
}

func TestSynthesis(t *testing.T) {
	in := SynthesisInput{
		Ticker:    "AAPL",
		Quote:     "AAPL 190.00 USD (+1.00%)",
		Topics:    []TopicSummary{{Topic: "Financial Health", Steps: 3}},
		Facts:     []string{"Apple Q3 revenue was $90B"},
		MoreFacts: 7,
		Reasoning: []string{"Revenue grew."},
	}
	got, err := Synthesis(in, types.LanguageChinese)
	require.NoError(t, err)
	assert.Contains(t, got, "AAPL 190.00 USD")
	assert.Contains(t, got, "- Financial Health: 3 steps")
	assert.Contains(t, got, "- Apple Q3 revenue was $90B")
	assert.Contains(t, got, "(7 more facts")
	assert.Contains(t, got, "- Revenue grew.")
	assert.Contains(t, got, `"competitorMatrix"`)
	assert.Contains(t, got, "Simplified Chinese")

	in.MoreFacts = 0
	got, err = Synthesis(in, types.LanguageEnglish)
	require.NoError(t, err)
	assert.NotContains(t, got, "more facts were collected")
}
