// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FactHit is one stored finding matching a fact search.
type FactHit struct {
	ReportID  string    `json:"reportId" yaml:"report_id"`
	Ticker    string    `json:"ticker" yaml:"ticker"`
	Topic     string    `json:"topic" yaml:"topic"`
	NodeID    string    `json:"nodeId" yaml:"node_id"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// SearchFacts returns findings from all stored runs whose text contains
// every whitespace-separated term of query, newest run first.
func (s *Store) SearchFacts(ctx context.Context, query string, limit int) ([]FactHit, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty fact query")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT f.report_id, r.ticker, f.topic, f.node_id, f.content, r.created_at
		FROM facts f
		JOIN reports r ON r.id = f.report_id
		WHERE 1=1`)
	for _, t := range terms {
		qb.WriteString(` AND f.content LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(t)+"%")
	}
	qb.WriteString(` ORDER BY r.created_at DESC, f.rowid LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching facts: %w", err)
	}
	defer rows.Close()

	var hits []FactHit
	for rows.Next() {
		var (
			h         FactHit
			createdAt string
		)
		if err := rows.Scan(&h.ReportID, &h.Ticker, &h.Topic, &h.NodeID, &h.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning fact row: %w", err)
		}
		h.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
