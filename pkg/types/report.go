// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Competitor is one row of the report's competitor matrix.
type Competitor struct {
	Name            string `json:"name" yaml:"name"`
	MarketCap       string `json:"marketCap,omitempty" yaml:"market_cap,omitempty"`
	CoreDifference  string `json:"coreDifference" yaml:"core_difference"`
	ResourceQuality string `json:"resourceQuality,omitempty" yaml:"resource_quality,omitempty"`
}

// UnmarshalJSON accepts marketCap and resourceQuality as either strings
// or bare numbers. Models often emit a figure such as 3.4e12 where text is
// expected; the number is kept as written.
func (c *Competitor) UnmarshalJSON(data []byte) error {
	type plain Competitor
	var raw struct {
		plain
		MarketCap       json.RawMessage `json:"marketCap"`
		ResourceQuality json.RawMessage `json:"resourceQuality"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Competitor(raw.plain)
	var err error
	if c.MarketCap, err = textOrNumber("marketCap", raw.MarketCap); err != nil {
		return err
	}
	c.ResourceQuality, err = textOrNumber("resourceQuality", raw.ResourceQuality)
	return err
}

func textOrNumber(field string, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("competitor %s: want string or number, got %s", field, raw)
	}
	return n.String(), nil
}

// FinancialReality summarizes the company's cash and revenue picture.
type FinancialReality struct {
	CashBurnRate string `json:"cashBurnRate,omitempty" yaml:"cash_burn_rate,omitempty"`
	CapexCycle   string `json:"capexCycle,omitempty" yaml:"capex_cycle,omitempty"`
	RevenueTrend string `json:"revenueTrend,omitempty" yaml:"revenue_trend,omitempty"`
}

// Report is the synthesized investment report. It is created once at the
// end of a run and never modified afterwards.
type Report struct {
	NarrativeArc     string           `json:"narrativeArc" yaml:"narrative_arc"`
	CompetitorMatrix []Competitor     `json:"competitorMatrix" yaml:"competitor_matrix"`
	FinancialReality FinancialReality `json:"financialReality" yaml:"financial_reality"`
	MarginalChanges  string           `json:"marginalChanges" yaml:"marginal_changes"`
	Verdict          string           `json:"verdict" yaml:"verdict"`
}

// StoredReport is a persisted run as returned by the store.
type StoredReport struct {
	ID            string        `json:"id" yaml:"id"`
	Report        Report        `json:"report" yaml:"report"`
	Investigation Investigation `json:"investigation" yaml:"investigation"`
	Tokens        TokenUsage    `json:"tokens" yaml:"tokens"`
	CreatedAt     time.Time     `json:"createdAt" yaml:"created_at"`
}

// ReportSummary is a listing row for persisted reports.
type ReportSummary struct {
	ID        string    `json:"id" yaml:"id"`
	Ticker    string    `json:"ticker" yaml:"ticker"`
	Verdict   string    `json:"verdict" yaml:"verdict"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}
