// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/internal/httputil"
	"github.com/pdiddy/equity-research/pkg/types"
)

// --- Anthropic ---

func TestAnthropicGenerate(t *testing.T) {
	var got anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],
			"usage":{"input_tokens":1000000,"output_tokens":1000000}}`)
	}))
	defer ts.Close()

	b := NewAnthropic(types.ProviderConfig{APIKey: "test-key", Model: "claude-sonnet-4-5", BaseURL: ts.URL}, NewPriceTable(nil))
	gen, err := b.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)

	assert.Equal(t, "hello world", gen.Text)
	assert.Equal(t, "claude-sonnet-4-5", got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.Equal(t, 1000000, gen.Usage.InputTokens)
	assert.InDelta(t, 18.0, gen.Usage.Cost, 1e-9)
}

func TestAnthropicModelOverride(t *testing.T) {
	var got anthropicRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		fmt.Fprint(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer ts.Close()

	b := NewAnthropic(types.ProviderConfig{APIKey: "k", Model: "default-model", BaseURL: ts.URL}, nil)
	_, err := b.Generate(context.Background(), "prompt", "override-model")
	require.NoError(t, err)
	assert.Equal(t, "override-model", got.Model)
}

func TestAnthropicHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"bad key"}`)
	}))
	defer ts.Close()

	b := NewAnthropic(types.ProviderConfig{Name: "primary", APIKey: "k", BaseURL: ts.URL}, nil)
	_, err := b.Generate(context.Background(), "prompt", "")

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "primary", ge.Provider)
	assert.Equal(t, http.StatusUnauthorized, ge.StatusCode)
}

// --- OpenAI-compatible ---

func TestOpenAIGenerate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"answer"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5}}`)
	}))
	defer ts.Close()

	b := NewOpenAI(types.ProviderConfig{APIKey: "sk-test", Model: "gpt-4o-mini", BaseURL: ts.URL}, NewPriceTable(nil))
	gen, err := b.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "answer", gen.Text)
	assert.Equal(t, 15, gen.Usage.Total())
}

func TestOpenAIDefaults(t *testing.T) {
	b := NewOpenAI(types.ProviderConfig{APIKey: "k"}, nil)
	assert.Equal(t, 180*time.Second, b.Client.Timeout)
	assert.Equal(t, 3, b.Retry.MaxAttempts)
	assert.Equal(t, time.Second, b.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, b.Retry.MaxDelay)
}

func TestOpenAIRetriesTransientErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			// Drop the connection to produce a transport-level error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer is not a Hijacker")
				return
			}
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"finally"}}]}`)
	}))
	defer ts.Close()

	b := NewOpenAI(types.ProviderConfig{APIKey: "k", BaseURL: ts.URL}, nil)
	b.Retry = httputil.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	gen, err := b.Generate(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "finally", gen.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestOpenAIDoesNotRetryHTTPErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	b := NewOpenAI(types.ProviderConfig{APIKey: "k", BaseURL: ts.URL}, nil)
	b.Retry = httputil.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	_, err := b.Generate(context.Background(), "prompt", "")
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, http.StatusBadRequest, ge.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

// --- Fallback ---

type stubGenerator struct {
	text  string
	err   error
	calls int
}

func (s *stubGenerator) Generate(context.Context, string, string) (types.Generation, error) {
	s.calls++
	if s.err != nil {
		return types.Generation{}, s.err
	}
	return types.Generation{Text: s.text}, nil
}

func TestFallback(t *testing.T) {
	first := &stubGenerator{err: errors.New("down")}
	second := &stubGenerator{text: "from second"}
	third := &stubGenerator{text: "unused"}

	f := &Fallback{Generators: []Generator{first, second, third}, Logger: zap.NewNop()}
	gen, err := f.Generate(context.Background(), "p", "")
	require.NoError(t, err)
	assert.Equal(t, "from second", gen.Text)
	assert.Equal(t, 0, third.calls)
}

func TestFallbackAllFail(t *testing.T) {
	down := errors.New("down")
	f := &Fallback{Generators: []Generator{&stubGenerator{err: down}, &stubGenerator{err: errors.New("also down")}}}
	_, err := f.Generate(context.Background(), "p", "")
	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.ErrorIs(t, err, down)
}

// --- New ---

func TestNew(t *testing.T) {
	_, err := New(types.LLMConfig{}, zap.NewNop())
	assert.Error(t, err)

	g, err := New(types.LLMConfig{Providers: []types.ProviderConfig{
		{Name: "a", Kind: types.ProviderAnthropic, APIKey: "k"},
		{Name: "no-key", Kind: types.ProviderOpenAI},
	}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicBackend{}, g)

	g, err = New(types.LLMConfig{Providers: []types.ProviderConfig{
		{Name: "a", Kind: types.ProviderAnthropic, APIKey: "k"},
		{Name: "b", Kind: types.ProviderOpenAI, APIKey: "k"},
	}}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Fallback{}, g)

	_, err = New(types.LLMConfig{Providers: []types.ProviderConfig{{Kind: "bogus", APIKey: "k"}}}, zap.NewNop())
	assert.Error(t, err)
}

// --- Pricing ---

func TestPriceTableUsage(t *testing.T) {
	p := NewPriceTable(map[string]types.ModelPrice{"custom": {InputPerMillion: 1, OutputPerMillion: 2}})

	assert.InDelta(t, 3.0, p.Usage("custom", 1_000_000, 1_000_000).Cost, 1e-9)
	// Dated snapshot inherits its family price.
	assert.InDelta(t, 0.15, p.Usage("gpt-4o-mini-2024-07-18", 1_000_000, 0).Cost, 1e-9)
	assert.Zero(t, p.Usage("unknown-model", 100, 100).Cost)
	assert.Equal(t, 200, p.Usage("unknown-model", 100, 100).Total())
}
