// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists finished research runs in SQLite. Each run keeps
// its report and investigation as JSON alongside a facts table that can be
// searched across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/equity-research/pkg/types"
)

// DefaultPath is used when the config leaves the database path empty.
const DefaultPath = "data/reports.db"

const defaultListLimit = 20

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned by Load for an unknown report id.
var ErrNotFound = errors.New("report not found")

// Store manages the reports database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			ticker TEXT NOT NULL,
			verdict TEXT,
			report TEXT NOT NULL,
			investigation TEXT NOT NULL,
			input_tokens INTEGER,
			output_tokens INTEGER,
			cost REAL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_ticker ON reports(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
		`CREATE TABLE IF NOT EXISTS facts (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
			topic TEXT NOT NULL,
			node_id TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_facts_report_id ON facts(report_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores a finished run and returns its new id.
func (s *Store) Save(ctx context.Context, report types.Report, inv types.Investigation, tokens types.TokenUsage) (string, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	invJSON, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("encoding investigation: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, ticker, verdict, report, investigation, input_tokens, output_tokens, cost, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, strings.ToUpper(inv.Ticker), report.Verdict, string(reportJSON), string(invJSON),
		tokens.InputTokens, tokens.OutputTokens, tokens.Cost,
		s.now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("inserting report: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO facts (report_id, topic, node_id, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range inv.TopicChains {
		for _, n := range c.Nodes {
			for _, f := range n.Findings {
				if _, err := stmt.ExecContext(ctx, id, c.Topic, n.ID, f); err != nil {
					return "", fmt.Errorf("inserting fact for %s: %w", n.ID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing report: %w", err)
	}
	return id, nil
}

// Load returns a stored run by id, or ErrNotFound.
func (s *Store) Load(ctx context.Context, id string) (types.StoredReport, error) {
	var (
		out               types.StoredReport
		reportJSON, invJS string
		createdAt         string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, report, investigation, input_tokens, output_tokens, cost, created_at
		 FROM reports WHERE id = ?`, id,
	).Scan(&out.ID, &reportJSON, &invJS, &out.Tokens.InputTokens, &out.Tokens.OutputTokens, &out.Tokens.Cost, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.StoredReport{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.StoredReport{}, fmt.Errorf("loading report %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(reportJSON), &out.Report); err != nil {
		return types.StoredReport{}, fmt.Errorf("decoding report %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(invJS), &out.Investigation); err != nil {
		return types.StoredReport{}, fmt.Errorf("decoding investigation %s: %w", id, err)
	}
	out.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return out, nil
}

// ListOptions filters List.
type ListOptions struct {
	// Ticker restricts the listing to one ticker.
	Ticker string

	// Limit caps the number of rows. Zero uses the default of 20.
	Limit int
}

// List returns stored runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.ReportSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(`SELECT id, ticker, verdict, created_at FROM reports WHERE 1=1`)
	if opts.Ticker != "" {
		qb.WriteString(` AND ticker = ?`)
		args = append(args, strings.ToUpper(opts.Ticker))
	}
	qb.WriteString(` ORDER BY created_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []types.ReportSummary
	for rows.Next() {
		var (
			r         types.ReportSummary
			verdict   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.Ticker, &verdict, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		r.Verdict = verdict.String
		r.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
