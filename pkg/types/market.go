// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Quote is a market snapshot for a ticker.
type Quote struct {
	Price         float64 `json:"price" yaml:"price"`
	Change        float64 `json:"change" yaml:"change"`
	ChangePercent float64 `json:"changePercent" yaml:"change_percent"`
	MarketCap     float64 `json:"marketCap,omitempty" yaml:"market_cap,omitempty"`
	Volume        float64 `json:"volume,omitempty" yaml:"volume,omitempty"`
	Currency      string  `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// SearchResult is one web search hit. Content carries the extracted page
// text when the provider returns it; only results with content feed fact
// extraction.
type SearchResult struct {
	Title   string `json:"title" yaml:"title"`
	Snippet string `json:"snippet" yaml:"snippet"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`
	Link    string `json:"link" yaml:"link"`

	// Source identifies which backend found this result (e.g. "tavily").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Generation is the text and usage returned by one generation call.
type Generation struct {
	Text  string     `json:"text" yaml:"text"`
	Usage TokenUsage `json:"usage" yaml:"usage"`
}
