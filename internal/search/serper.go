// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pdiddy/equity-research/internal/httputil"
	"github.com/pdiddy/equity-research/pkg/types"
)

// serperSearchURL is the Serper Google search endpoint. Declared as a var so
// tests can substitute an httptest server.
var serperSearchURL = "https://google.serper.dev/search"

// SerperBackend queries Google through the Serper API. Serper returns only
// snippets, so the snippet doubles as the result content.
type SerperBackend struct {
	Client    *http.Client
	APIKey    string
	UserAgent string
}

// Name returns the backend identifier.
func (b *SerperBackend) Name() string { return "serper" }

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search implements Searcher.
func (b *SerperBackend) Search(ctx context.Context, query string, maxResults int) ([]types.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	body, err := json.Marshal(map[string]any{"q": query, "num": maxResults})
	if err != nil {
		return nil, b.fail(query, fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serperSearchURL, bytes.NewReader(body))
	if err != nil {
		return nil, b.fail(query, fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", b.APIKey)
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, b.fail(query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, b.fail(query, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, b.fail(query, fmt.Errorf("parsing response: %w", err))
	}

	results := make([]types.SearchResult, 0, len(sr.Organic))
	for _, r := range sr.Organic {
		results = append(results, types.SearchResult{
			Title:   r.Title,
			Snippet: r.Snippet,
			Content: r.Snippet,
			Link:    r.Link,
			Source:  b.Name(),
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

func (b *SerperBackend) fail(query string, err error) error {
	return &SearchError{Backend: b.Name(), Query: query, Err: err}
}
