// Package store keeps a local history of scored runs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/user/riskscope/pkg/engine"
	"github.com/user/riskscope/pkg/explain"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// Run is one persisted pipeline execution.
type Run struct {
	ID           string                `json:"id"`
	CreatedAt    time.Time             `json:"created_at"`
	Organization engine.Organization   `json:"organization"`
	Context      engine.Context        `json:"context"`
	Inputs       []string              `json:"inputs"`
	Traces       []engine.TraceRecord  `json:"traces"`
	Explanations []explain.Explanation `json:"explanations,omitempty"`
}

// RunSummary is the list view of a run.
type RunSummary struct {
	ID            string
	CreatedAt     time.Time
	Organization  engine.Organization
	Findings      int
	CriticalCount int
	TopScore      float64
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SQLiteStore implements run history on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates the database file if needed and applies migrations.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		org_name TEXT NOT NULL,
		org_type TEXT NOT NULL,
		context_json TEXT NOT NULL,
		inputs_json TEXT NOT NULL,
		finding_count INTEGER NOT NULL,
		critical_count INTEGER NOT NULL,
		top_score REAL NOT NULL
	);
	CREATE TABLE IF NOT EXISTS traces (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		vuln_id TEXT NOT NULL,
		final_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		record_json TEXT NOT NULL,
		explanation_json TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores run and its traces in one transaction. An empty ID or
// CreatedAt is filled in.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) error {
	if len(run.Explanations) > 0 && len(run.Explanations) != len(run.Traces) {
		return fmt.Errorf("run has %d explanations for %d traces", len(run.Explanations), len(run.Traces))
	}
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	ctxJSON, err := json.Marshal(run.Context)
	if err != nil {
		return err
	}
	inputs := run.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return err
	}

	var critical int
	var top float64
	for _, tr := range run.Traces {
		if tr.Trace.RiskLevel == engine.RiskCritical {
			critical++
		}
		if tr.Trace.FinalScore > top {
			top = tr.Trace.FinalScore
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, org_name, org_type, context_json, inputs_json, finding_count, critical_count, top_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Organization.Name, run.Organization.Type,
		string(ctxJSON), string(inputsJSON), len(run.Traces), critical, top)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO traces (run_id, position, vuln_id, final_score, risk_level, record_json, explanation_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, tr := range run.Traces {
		rec, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		var exp sql.NullString
		if i < len(run.Explanations) {
			data, err := json.Marshal(run.Explanations[i])
			if err != nil {
				return err
			}
			exp = sql.NullString{String: string(data), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, tr.VulnID, tr.Trace.FinalScore, string(tr.Trace.RiskLevel), string(rec), exp); err != nil {
			return fmt.Errorf("insert trace %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, org_name, org_type, finding_count, critical_count, top_score
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var created int64
		if err := rows.Scan(&rs.ID, &created, &rs.Organization.Name, &rs.Organization.Type, &rs.Findings, &rs.CriticalCount, &rs.TopScore); err != nil {
			return nil, err
		}
		rs.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, rs)
	}
	return out, rows.Err()
}

// GetRun loads a run by full id or unique id prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	run := &Run{ID: fullID}
	var created int64
	var ctxJSON, inputsJSON string
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at, org_name, org_type, context_json, inputs_json FROM runs WHERE id = ?`, fullID).
		Scan(&created, &run.Organization.Name, &run.Organization.Type, &ctxJSON, &inputsJSON)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, created).UTC()
	if err := json.Unmarshal([]byte(ctxJSON), &run.Context); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	if err := json.Unmarshal([]byte(inputsJSON), &run.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json, explanation_json FROM traces WHERE run_id = ? ORDER BY position`, fullID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Traces = []engine.TraceRecord{}
	for rows.Next() {
		var rec string
		var exp sql.NullString
		if err := rows.Scan(&rec, &exp); err != nil {
			return nil, err
		}
		var tr engine.TraceRecord
		if err := json.Unmarshal([]byte(rec), &tr); err != nil {
			return nil, fmt.Errorf("decode trace: %w", err)
		}
		run.Traces = append(run.Traces, tr)
		if exp.Valid {
			var e explain.Explanation
			if err := json.Unmarshal([]byte(exp.String), &e); err != nil {
				return nil, fmt.Errorf("decode explanation: %w", err)
			}
			run.Explanations = append(run.Explanations, e)
		}
	}
	return run, rows.Err()
}

func (s *SQLiteStore) resolveID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var got string
		if err := rows.Scan(&got); err != nil {
			return "", err
		}
		if got == id {
			return got, nil
		}
		ids = append(ids, got)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}
