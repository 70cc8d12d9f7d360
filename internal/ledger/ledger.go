// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records every stage run, the outcome of each route and the
// fingerprints of the images handled, in a SQLite database under the work
// directory.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/fieldbook/pkg/types"
)

const dbFile = "ledger.db"

// timeLayout keeps every fraction digit so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Ledger is the run history database.
type Ledger struct {
	db  *sql.DB
	dir string
	now func() time.Time
}

// Run is one recorded stage run.
type Run struct {
	ID         string              `json:"id" yaml:"id"`
	Stage      types.Stage         `json:"stage" yaml:"stage"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
	Succeeded  int                 `json:"succeeded" yaml:"succeeded"`
	Skipped    int                 `json:"skipped" yaml:"skipped"`
	Failed     int                 `json:"failed" yaml:"failed"`
	Fatal      string              `json:"fatal,omitempty" yaml:"fatal,omitempty"`
	Routes     []types.RouteResult `json:"routes,omitempty" yaml:"routes,omitempty"`
}

// Fingerprint is an image hash seen for a route.
type Fingerprint struct {
	Route  string      `json:"route" yaml:"route"`
	SHA256 string      `json:"sha256" yaml:"sha256"`
	Source types.Stage `json:"source" yaml:"source"`
	RunID  string      `json:"run_id" yaml:"run_id"`
}

// Open opens or creates the ledger at dir/ledger.db.
func Open(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	l := &Ledger{db: db, dir: dir, now: time.Now}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Dir returns the directory holding the ledger.
func (l *Ledger) Dir() string { return l.dir }

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			stage TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			succeeded INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			fatal TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage)`,
		`CREATE TABLE IF NOT EXISTS route_status (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			route TEXT NOT NULL,
			number INTEGER NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			output TEXT,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_route_status_route ON route_status(route)`,
		`CREATE TABLE IF NOT EXISTS fingerprints (
			route TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			source TEXT NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			PRIMARY KEY (route, sha256, source, run_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a finished stage run and returns its id. fatal is the
// batch-level error that stopped the stage, if any.
func (l *Ledger) Record(ctx context.Context, summary types.StageSummary, fatal error) (string, error) {
	id := uuid.NewString()
	finished := l.now().UTC()
	started := summary.StartedAt.UTC()
	if summary.StartedAt.IsZero() {
		started = finished
	}
	fatalText := ""
	if fatal != nil {
		fatalText = fatal.Error()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, stage, started_at, finished_at, succeeded, skipped, failed, fatal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(summary.Stage), started.Format(timeLayout), finished.Format(timeLayout),
		summary.Succeeded(), summary.Skipped(), summary.Failed(), fatalText,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO route_status (run_id, seq, stage, route, number, status, reason, output, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range summary.Results {
		_, err := stmt.ExecContext(ctx,
			id, i, string(summary.Stage), r.Route.ID, r.Route.Number,
			string(r.Status), r.Reason, r.Output, r.Detail,
		)
		if err != nil {
			return "", fmt.Errorf("inserting status of %s: %w", r.Route.ID, err)
		}
		if err := recordFingerprints(ctx, tx, id, r.Route.ID, summary.Stage, r.Fingerprints); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// RecordFingerprints attaches image hashes seen for route to an existing
// run.
func (l *Ledger) RecordFingerprints(ctx context.Context, runID, route string, source types.Stage, hashes []string) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	if err := recordFingerprints(ctx, tx, runID, route, source, hashes); err != nil {
		return err
	}
	return tx.Commit()
}

func recordFingerprints(ctx context.Context, tx *sql.Tx, runID, route string, source types.Stage, hashes []string) error {
	for _, h := range hashes {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO fingerprints (route, sha256, source, run_id) VALUES (?, ?, ?, ?)`,
			route, h, string(source), runID,
		)
		if err != nil {
			return fmt.Errorf("inserting fingerprint for %s: %w", route, err)
		}
	}
	return nil
}

// Latest returns the most recent run of stage with its route outcomes, or
// nil when the stage has never run.
func (l *Ledger) Latest(ctx context.Context, stage types.Stage) (*Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, stage, started_at, finished_at, succeeded, skipped, failed, fatal
		 FROM runs WHERE stage = ? ORDER BY rowid DESC LIMIT 1`, string(stage))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.Routes, err = l.routes(ctx, run.ID); err != nil {
		return nil, err
	}
	return run, nil
}

// Status returns the latest run of every stage that has run, in pipeline
// order.
func (l *Ledger) Status(ctx context.Context) ([]Run, error) {
	var out []Run
	for _, st := range types.Stages {
		r, err := l.Latest(ctx, st)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Runs returns every recorded run, oldest first, without route outcomes.
func (l *Ledger) Runs(ctx context.Context) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, stage, started_at, finished_at, succeeded, skipped, failed, fatal
		 FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Fingerprints returns the image hashes recorded for route, or for every
// route when route is empty.
func (l *Ledger) Fingerprints(ctx context.Context, route string) ([]Fingerprint, error) {
	q := `SELECT route, sha256, source, run_id FROM fingerprints`
	var args []any
	if route != "" {
		q += ` WHERE route = ?`
		args = append(args, route)
	}
	q += ` ORDER BY route, source, sha256`

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fingerprints: %w", err)
	}
	defer rows.Close()

	var out []Fingerprint
	for rows.Next() {
		var f Fingerprint
		var source string
		if err := rows.Scan(&f.Route, &f.SHA256, &source, &f.RunID); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}
		f.Source = types.Stage(source)
		out = append(out, f)
	}
	return out, rows.Err()
}

func (l *Ledger) routes(ctx context.Context, runID string) ([]types.RouteResult, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT route, number, status, reason, output, detail
		 FROM route_status WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying route status: %w", err)
	}
	defer rows.Close()

	var out []types.RouteResult
	for rows.Next() {
		var r types.RouteResult
		var status string
		var reason, output, detail sql.NullString
		if err := rows.Scan(&r.Route.ID, &r.Route.Number, &status, &reason, &output, &detail); err != nil {
			return nil, fmt.Errorf("scanning route status: %w", err)
		}
		r.Status = types.RouteStatus(status)
		r.Reason, r.Output, r.Detail = reason.String, output.String, detail.String
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var stage, started, finished string
	var fatal sql.NullString
	err := s.Scan(&r.ID, &stage, &started, &finished, &r.Succeeded, &r.Skipped, &r.Failed, &fatal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	r.Stage = types.Stage(stage)
	r.Fatal = fatal.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return &r, nil
}
