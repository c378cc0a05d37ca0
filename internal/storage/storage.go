// Package storage keeps an append-only journal of agent calls in SQLite.
//
// The journal is an operator audit trail. Tasks themselves are never
// persisted or looked up again.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the journal database file created inside the data directory.
const FileName = "journal.db"

// Outcome values recorded for a call.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Entry is one journaled call.
type Entry struct {
	RequestID string
	Method    string
	TaskID    string
	ContextID string
	SkillID   string
	Caller    string
	Outcome   string
	Error     string
	Chunks    int
	Duration  time.Duration
	CreatedAt time.Time
}

// Journal records calls in a SQLite database.
type Journal struct {
	db *sql.DB
}

// Open creates dataDir if needed and opens the journal inside it.
func Open(dataDir string) (*Journal, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, FileName))
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under concurrent calls.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		method TEXT NOT NULL,
		task_id TEXT NOT NULL,
		context_id TEXT NOT NULL,
		skill_id TEXT NOT NULL,
		caller TEXT NOT NULL,
		outcome TEXT NOT NULL,
		error TEXT NOT NULL,
		chunks INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create calls table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e. A zero CreatedAt is set to the current time.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO calls (request_id, method, task_id, context_id, skill_id, caller, outcome, error, chunks, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Method, e.TaskID, e.ContextID, e.SkillID, e.Caller, e.Outcome, e.Error,
		e.Chunks, e.Duration.Milliseconds(), e.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert call: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT request_id, method, task_id, context_id, skill_id, caller, outcome, error, chunks, duration_ms, created_at
		FROM calls ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMs int64
			createdMs  int64
		)
		if err := rows.Scan(&e.RequestID, &e.Method, &e.TaskID, &e.ContextID, &e.SkillID, &e.Caller,
			&e.Outcome, &e.Error, &e.Chunks, &durationMs, &createdMs); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return entries, nil
}
