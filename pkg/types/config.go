// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// ResearchConfig holds the orchestration policy knobs.
type ResearchConfig struct {
	// CallConcurrency bounds in-flight generation and search calls across a run (default 5).
	CallConcurrency int `json:"call_concurrency" yaml:"call_concurrency" mapstructure:"call_concurrency"`

	// ChainConcurrency bounds how many topic chains execute at once (default 2).
	ChainConcurrency int `json:"chain_concurrency" yaml:"chain_concurrency" mapstructure:"chain_concurrency"`

	// MaxSearchResults is passed to every search call (default 5).
	MaxSearchResults int `json:"max_search_results" yaml:"max_search_results" mapstructure:"max_search_results"`

	// MaxFactsInSynthesis caps the facts listed in the synthesis prompt (default 50).
	MaxFactsInSynthesis int `json:"max_facts_in_synthesis" yaml:"max_facts_in_synthesis" mapstructure:"max_facts_in_synthesis"`

	// Model overrides the generation model for every call when set.
	Model string `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
}

// WithDefaults fills zero values with the documented defaults.
func (c ResearchConfig) WithDefaults() ResearchConfig {
	if c.CallConcurrency <= 0 {
		c.CallConcurrency = 5
	}
	if c.ChainConcurrency <= 0 {
		c.ChainConcurrency = 2
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = 5
	}
	if c.MaxFactsInSynthesis <= 0 {
		c.MaxFactsInSynthesis = 50
	}
	return c
}

// ProviderKind identifies a generation API dialect.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
)

// ModelPrice is the cost in USD per million tokens.
type ModelPrice struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million" mapstructure:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million" mapstructure:"output_per_million"`
}

// ProviderConfig configures one generation provider.
type ProviderConfig struct {
	Name    string       `json:"name" yaml:"name" mapstructure:"name"`
	Kind    ProviderKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	BaseURL string       `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey  string       `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
	Model   string       `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the completion length (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout applies per request. OpenAI-compatible providers default to 180s.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MaxAttempts bounds transient-error retries for OpenAI-compatible providers (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LLMConfig lists generation providers in fallback order plus a price table
// keyed by model name.
type LLMConfig struct {
	Providers []ProviderConfig      `json:"providers" yaml:"providers" mapstructure:"providers"`
	Prices    map[string]ModelPrice `json:"prices,omitempty" yaml:"prices,omitempty" mapstructure:"prices"`
}

// SearchConfig holds settings for the web search capability.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backends lists enabled backends by name: "tavily", "serper".
	Backends []string `json:"backends" yaml:"backends" mapstructure:"backends"`

	TavilyAPIKey string `json:"tavily_api_key,omitempty" yaml:"tavily_api_key,omitempty" mapstructure:"tavily_api_key"`
	SerperAPIKey string `json:"serper_api_key,omitempty" yaml:"serper_api_key,omitempty" mapstructure:"serper_api_key"`
}

// QuoteConfig holds settings for the market quote capability.
type QuoteConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
}

// StoreConfig holds settings for report persistence.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/reports.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Disabled skips persistence entirely.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Address string `json:"address" yaml:"address" mapstructure:"address"`
}

// Config groups every component configuration. It is built once at process
// start and passed into each client constructor.
type Config struct {
	Research ResearchConfig `json:"research" yaml:"research" mapstructure:"research"`
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Quote    QuoteConfig    `json:"quote" yaml:"quote" mapstructure:"quote"`
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `json:"server" yaml:"server" mapstructure:"server"`
}
