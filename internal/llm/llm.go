// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm implements the generate-text capability: an Anthropic Messages
// backend, an OpenAI-compatible chat backend with transient-error retry, and
// a Fallback generator that tries providers in configured order.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/pkg/types"
)

// Generator produces text for a prompt. An empty model selects the
// provider's configured default.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (types.Generation, error)
}

// GenerationError reports a provider failure.
type GenerationError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *GenerationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation via %s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("generation via %s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

const defaultMaxTokens = 4096

// New builds a generator from configuration. A single provider is returned
// as-is; several are wrapped in a Fallback in the listed order.
func New(cfg types.LLMConfig, logger *zap.Logger) (Generator, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no generation providers configured")
	}
	prices := NewPriceTable(cfg.Prices)

	var gens []Generator
	for _, p := range cfg.Providers {
		if p.APIKey == "" {
			logger.Warn("skipping generation provider without API key", zap.String("provider", p.Name))
			continue
		}
		switch p.Kind {
		case types.ProviderAnthropic:
			gens = append(gens, NewAnthropic(p, prices))
		case types.ProviderOpenAI:
			gens = append(gens, NewOpenAI(p, prices))
		default:
			return nil, fmt.Errorf("provider %s: unknown kind %q", p.Name, p.Kind)
		}
	}
	if len(gens) == 0 {
		return nil, fmt.Errorf("no generation provider has an API key")
	}
	if len(gens) == 1 {
		return gens[0], nil
	}
	return &Fallback{Generators: gens, Logger: logger}, nil
}

// Fallback tries each generator in order and returns the first success.
type Fallback struct {
	Generators []Generator
	Logger     *zap.Logger
}

// Generate implements Generator.
func (f *Fallback) Generate(ctx context.Context, prompt, model string) (types.Generation, error) {
	var errs []error
	for i, g := range f.Generators {
		gen, err := g.Generate(ctx, prompt, model)
		if err == nil {
			return gen, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if f.Logger != nil && i < len(f.Generators)-1 {
			f.Logger.Warn("generation provider failed, trying next", zap.Int("provider", i), zap.Error(err))
		}
	}
	return types.Generation{}, &GenerationError{Provider: "fallback", Err: errors.Join(errs...)}
}

func httpClient(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
