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
	"time"

	"github.com/pdiddy/equity-research/internal/httputil"
	"github.com/pdiddy/equity-research/pkg/types"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAITimeout = 180 * time.Second
)

// OpenAIBackend calls an OpenAI-compatible chat completions API. Requests
// time out after 180s by default and transient network failures are retried
// under Retry.
type OpenAIBackend struct {
	Name      string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Client    *http.Client
	Prices    *PriceTable
	Retry     httputil.RetryPolicy
}

// NewOpenAI builds a backend from provider configuration.
func NewOpenAI(cfg types.ProviderConfig, prices *PriceTable) *OpenAIBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = openAITimeout
	}
	base := openAIBaseURL
	if cfg.BaseURL != "" {
		base = strings.TrimRight(cfg.BaseURL, "/")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	retry := httputil.DefaultRetryPolicy
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	return &OpenAIBackend{
		Name:      nameOr(cfg.Name, "openai"),
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		BaseURL:   base,
		MaxTokens: maxTokens,
		Client:    &http.Client{Timeout: timeout},
		Prices:    prices,
		Retry:     retry,
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate implements Generator.
func (b *OpenAIBackend) Generate(ctx context.Context, prompt, model string) (types.Generation, error) {
	if model == "" {
		model = b.Model
	}
	body, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: b.MaxTokens,
	})
	if err != nil {
		return types.Generation{}, &GenerationError{Provider: b.Name, Err: fmt.Errorf("marshaling request: %w", err)}
	}

	var gen types.Generation
	var status int
	err = httputil.Retry(ctx, b.Retry, func(ctx context.Context) error {
		var callErr error
		gen, status, callErr = b.call(ctx, body, model)
		return callErr
	})
	if err != nil {
		return types.Generation{}, &GenerationError{Provider: b.Name, StatusCode: status, Err: err}
	}
	return gen, nil
}

func (b *OpenAIBackend) call(ctx context.Context, body []byte, model string) (types.Generation, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return types.Generation{}, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	resp, err := httpClient(b.Client).Do(req)
	if err != nil {
		return types.Generation{}, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.Generation{}, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(msg)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return types.Generation{}, 0, fmt.Errorf("decoding response: %w", err)
	}
	if len(cr.Choices) == 0 || cr.Choices[0].Message.Content == "" {
		return types.Generation{}, 0, fmt.Errorf("no choices in response")
	}

	return types.Generation{
		Text:  cr.Choices[0].Message.Content,
		Usage: b.Prices.Usage(model, cr.Usage.PromptTokens, cr.Usage.CompletionTokens),
	}, 0, nil
}
