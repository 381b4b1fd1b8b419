// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads provider API keys from a directory with one file
// per key. The file name is the key name, the trimmed contents its value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/pkg/types"
)

// Key file names.
const (
	TavilyKey = "tavily-api-key"
	SerperKey = "serper-api-key"
)

// ProviderKey returns the key file name for a generation provider kind.
func ProviderKey(kind types.ProviderKind) string {
	return string(kind) + "-api-key"
}

// Load returns the non-empty key files in dir. A missing dir yields an
// empty map. Dotfiles and subdirectories are ignored and unreadable files
// are logged and skipped.
func Load(dir string, logger *zap.Logger) (map[string]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return map[string]string{}, nil
	case err != nil:
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping unreadable secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			out[name] = v
		}
	}
	return out, nil
}

// Apply fills API keys that cfg leaves empty from loaded secrets. Keys set
// in configuration win.
func Apply(cfg *types.Config, secrets map[string]string) {
	for i := range cfg.LLM.Providers {
		p := &cfg.LLM.Providers[i]
		if p.APIKey == "" {
			p.APIKey = secrets[ProviderKey(p.Kind)]
		}
	}
	if cfg.Search.TavilyAPIKey == "" {
		cfg.Search.TavilyAPIKey = secrets[TavilyKey]
	}
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = secrets[SerperKey]
	}
}
