// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search implements the web-search capability. Each provider
// (Tavily, Serper) implements Backend; Multi fans a query out across the
// configured backends and merges their results.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/pkg/types"
)

// Searcher runs one web query.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error)
}

// Backend is a single search provider.
type Backend interface {
	Name() string
	Searcher
}

// SearchError reports a failed query.
type SearchError struct {
	Backend string
	Query   string
	Err     error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("search %q via %s: %v", e.Query, e.Backend, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// New builds a Multi from configuration. Unknown backend names and backends
// without an API key are errors.
func New(cfg types.SearchConfig, logger *zap.Logger) (*Multi, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	var backends []Backend
	for _, name := range cfg.Backends {
		switch name {
		case "tavily":
			if cfg.TavilyAPIKey == "" {
				return nil, fmt.Errorf("tavily backend enabled without an API key")
			}
			backends = append(backends, &TavilyBackend{Client: client, APIKey: cfg.TavilyAPIKey, UserAgent: cfg.UserAgent})
		case "serper":
			if cfg.SerperAPIKey == "" {
				return nil, fmt.Errorf("serper backend enabled without an API key")
			}
			backends = append(backends, &SerperBackend{Client: client, APIKey: cfg.SerperAPIKey, UserAgent: cfg.UserAgent})
		default:
			return nil, fmt.Errorf("unknown search backend %q", name)
		}
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no search backends configured")
	}
	return &Multi{Backends: backends, Logger: logger}, nil
}

// Multi queries every backend concurrently, deduplicates by link, and
// returns at most maxResults results in backend order. It fails only when
// every backend fails.
type Multi struct {
	Backends []Backend
	Logger   *zap.Logger
}

// Search implements Searcher.
func (m *Multi) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &SearchError{Backend: "multi", Query: query, Err: fmt.Errorf("query is empty")}
	}
	if len(m.Backends) == 0 {
		return nil, &SearchError{Backend: "multi", Query: query, Err: fmt.Errorf("no search backends configured")}
	}

	type backendResult struct {
		results []types.SearchResult
		err     error
	}
	slots := make([]backendResult, len(m.Backends))

	var wg sync.WaitGroup
	for i, b := range m.Backends {
		wg.Add(1)
		go func(i int, b Backend) {
			defer wg.Done()
			results, err := b.Search(ctx, query, maxResults)
			for j := range results {
				if results[j].Source == "" {
					results[j].Source = b.Name()
				}
			}
			slots[i] = backendResult{results: results, err: err}
		}(i, b)
	}
	wg.Wait()

	var all []types.SearchResult
	var errs []error
	for i, s := range slots {
		if s.err != nil {
			errs = append(errs, s.err)
			if m.Logger != nil {
				m.Logger.Warn("search backend failed", zap.String("backend", m.Backends[i].Name()), zap.Error(s.err))
			}
			continue
		}
		all = append(all, s.results...)
	}
	if len(errs) == len(m.Backends) {
		return nil, &SearchError{Backend: "multi", Query: query, Err: errors.Join(errs...)}
	}

	deduped := deduplicate(all)
	if maxResults > 0 && len(deduped) > maxResults {
		deduped = deduped[:maxResults]
	}
	return deduped, nil
}

// deduplicate merges results that share a normalized link, keeping the
// first occurrence and filling its empty fields from later ones.
func deduplicate(results []types.SearchResult) []types.SearchResult {
	seen := make(map[string]int)
	var out []types.SearchResult
	for _, r := range results {
		key := normalizeLink(r.Link)
		if key != "" {
			if idx, ok := seen[key]; ok {
				mergeInto(&out[idx], r)
				continue
			}
			seen[key] = len(out)
		}
		out = append(out, r)
	}
	return out
}

func mergeInto(dst *types.SearchResult, src types.SearchResult) {
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Snippet == "" {
		dst.Snippet = src.Snippet
	}
	if len(src.Content) > len(dst.Content) {
		dst.Content = src.Content
	}
	if src.Source != "" && !strings.Contains(dst.Source, src.Source) {
		dst.Source = dst.Source + "," + src.Source
	}
}

// normalizeLink lowercases the link and strips scheme, "www." and a
// trailing slash so trivially different URLs collapse.
func normalizeLink(link string) string {
	l := strings.ToLower(strings.TrimSpace(link))
	l = strings.TrimPrefix(l, "https://")
	l = strings.TrimPrefix(l, "http://")
	l = strings.TrimPrefix(l, "www.")
	return strings.TrimSuffix(l, "/")
}

// FormatTable writes results as a human-readable table to w.
func FormatTable(results []types.SearchResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-60s  %-10s  %s\n", "Rank", "Title", "Source", "Link")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-60s  %-10s  %s\n", i+1, truncate(r.Title, 60), r.Source, r.Link)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(results []types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
