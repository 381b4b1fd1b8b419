// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the generation prompts for each research stage.
// Every prompt asks for JSON or short prose; the reply language follows the
// run's Language.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/equity-research/pkg/types"
)

var languageInstruction = map[types.Language]string{
	types.LanguageEnglish: "Write every free-text value in English.",
	types.LanguageChinese: "Write every free-text value in Simplified Chinese (简体中文). Keep JSON keys in English.",
}

var planTmpl = template.Must(template.New("plan").Parse(`You are a senior equity research analyst planning an investigation of {{.Ticker}}.

Break the investigation into 5 to 7 research topics (for example "Financial Health", "Competitive Position", "Management & Capital Allocation"). For each topic, design 3 to 5 sequential steps that build on each other. Each step has:
- step_name: a short title
- intent: why this step matters for the investment thesis
- questions: 1 to 3 precise web search queries that would surface facts for this step
- next_logic_step: what the following step should examine

{{.Language}}

Respond with a single JSON object and nothing else:
{"topics": [{"topic": "...", "steps": [{"step_name": "...", "intent": "...", "questions": ["..."], "next_logic_step": "..."}]}]}
`))

var factsTmpl = template.Must(template.New("facts").Parse(`You are extracting facts about {{.Ticker}} for the research step "{{.StepName}}".
Step intent: {{.Intent}}

From the search results below, list discrete, verifiable facts: numbers, dates, named entities, quoted figures. Skip opinions and anything not supported by the text.

{{.Language}}

Respond with a JSON array of strings and nothing else, for example:
["Q3 revenue was $90B", "Gross margin reached 46% in 2024"]

Search results:
{{.Content}}
`))

var reasoningTmpl = template.Must(template.New("reasoning").Parse(`You are an equity analyst covering {{.Ticker}}.
Research step: {{.StepName}}
Intent: {{.Intent}}

Facts:
{{range .Findings}}- {{.}}
{{end}}
In 2 to 3 sentences, explain what these facts mean for the intent above. {{.Language}} Reply with the sentences only.
`))

var synthesisTmpl = template.Must(template.New("synthesis").Parse(`You are a senior equity analyst writing the final investment report for {{.Ticker}}.

Market data: {{.Quote}}

Research coverage:
{{range .Topics}}- {{.Topic}}: {{.Steps}} steps
{{end}}
Key facts:
{{range .Facts}}- {{.}}
{{end}}{{if .MoreFacts}}({{.MoreFacts}} more facts were collected but omitted here.)
{{end}}
Analyst reasoning:
{{range .Reasoning}}- {{.}}
{{end}}
{{.Language}}

Respond with a single JSON object and nothing else, with exactly these keys:
{"narrativeArc": "...", "competitorMatrix": [{"name": "...", "marketCap": "...", "coreDifference": "...", "resourceQuality": "..."}], "financialReality": {"cashBurnRate": "...", "capexCycle": "...", "revenueTrend": "..."}, "marginalChanges": "...", "verdict": "..."}
`))

// TopicSummary is one line of the synthesis coverage section.
type TopicSummary struct {
	Topic string
	Steps int
}

// SynthesisInput carries everything the synthesis prompt shows the model.
type SynthesisInput struct {
	Ticker    string
	Quote     string
	Topics    []TopicSummary
	Facts     []string
	MoreFacts int
	Reasoning []string
}

// Plan renders the topic-chain planning prompt.
func Plan(ticker string, lang types.Language) (string, error) {
	return render(planTmpl, struct {
		Ticker, Language string
	}{ticker, instruction(lang)})
}

// Facts renders the fact extraction prompt for one node.
func Facts(ticker string, lang types.Language, node types.ResearchNode, content string) (string, error) {
	return render(factsTmpl, struct {
		Ticker, StepName, Intent, Content, Language string
	}{ticker, node.StepName, node.Intent, content, instruction(lang)})
}

// Reasoning renders the reasoning prompt connecting findings to the node intent.
func Reasoning(ticker string, lang types.Language, node types.ResearchNode, findings []string) (string, error) {
	return render(reasoningTmpl, struct {
		Ticker, StepName, Intent, Language string
		Findings                           []string
	}{ticker, node.StepName, node.Intent, instruction(lang), findings})
}

// Synthesis renders the final report prompt.
func Synthesis(in SynthesisInput, lang types.Language) (string, error) {
	return render(synthesisTmpl, struct {
		SynthesisInput
		Language string
	}{in, instruction(lang)})
}

func instruction(lang types.Language) string {
	if s, ok := languageInstruction[lang]; ok {
		return s
	}
	return languageInstruction[types.LanguageEnglish]
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}
