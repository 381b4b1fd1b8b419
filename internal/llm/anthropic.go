// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/equity-research/pkg/types"
)

// anthropicAPIURL is the Messages API endpoint used when no base URL is configured.
const anthropicAPIURL = "https://api.anthropic.com/v1/messages"

// AnthropicBackend calls the Anthropic Messages API. It has no client-side
// retry; callers apply their own degrade policy.
type AnthropicBackend struct {
	Name      string
	APIKey    string
	Model     string
	URL       string
	MaxTokens int
	Client    *http.Client
	Prices    *PriceTable
}

// NewAnthropic builds a backend from provider configuration.
func NewAnthropic(cfg types.ProviderConfig, prices *PriceTable) *AnthropicBackend {
	url := anthropicAPIURL
	if cfg.BaseURL != "" {
		url = strings.TrimRight(cfg.BaseURL, "/") + "/v1/messages"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicBackend{
		Name:      nameOr(cfg.Name, "anthropic"),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		URL:       url,
		MaxTokens: maxTokens,
		Client:    &http.Client{Timeout: cfg.Timeout},
		Prices:    prices,
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Generate implements Generator.
func (b *AnthropicBackend) Generate(ctx context.Context, prompt, model string) (types.Generation, error) {
	if model == "" {
		model = b.Model
	}
	body, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: b.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return types.Generation{}, b.fail(0, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return types.Generation{}, b.fail(0, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", b.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := httpClient(b.Client).Do(req)
	if err != nil {
		return types.Generation{}, b.fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.Generation{}, b.fail(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(msg))))
	}

	var ar anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return types.Generation{}, b.fail(0, fmt.Errorf("decoding response: %w", err))
	}

	var text strings.Builder
	for _, block := range ar.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return types.Generation{}, b.fail(0, fmt.Errorf("no text content in response"))
	}

	return types.Generation{
		Text:  text.String(),
		Usage: b.Prices.Usage(model, ar.Usage.InputTokens, ar.Usage.OutputTokens),
	}, nil
}

func (b *AnthropicBackend) fail(status int, err error) error {
	return &GenerationError{Provider: b.Name, StatusCode: status, Err: err}
}

func nameOr(name, def string) string {
	if name != "" {
		return name
	}
	return def
}
