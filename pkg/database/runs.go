package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one stored research run as shown by the front-end.
type RunRecord struct {
	ID        uuid.UUID       `json:"id"`
	Question  string          `json:"question"`
	Status    string          `json:"status"`
	Config    json.RawMessage `json:"config,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (db *PostgresDB) CreateRun(ctx context.Context, id uuid.UUID, question string, config json.RawMessage) (*RunRecord, error) {
	query := `
		INSERT INTO research_runs (id, question, status, config)
		VALUES ($1, $2, $3, $4)
		RETURNING id, question, status, created_at, updated_at
	`
	run := &RunRecord{Config: config}
	err := db.Pool.QueryRow(ctx, query, id, question, StatusRunning, config).Scan(
		&run.ID, &run.Question, &run.Status, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

func (db *PostgresDB) FinishRun(ctx context.Context, id uuid.UUID, status string, result json.RawMessage) error {
	tag, err := db.Pool.Exec(ctx,
		"UPDATE research_runs SET status = $2, result = $3, updated_at = NOW() WHERE id = $1",
		id, status, result)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (db *PostgresDB) GetRun(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	query := `
		SELECT id, question, status, config, result, created_at, updated_at
		FROM research_runs
		WHERE id = $1
	`
	run := &RunRecord{}
	err := db.Pool.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.Question, &run.Status, &run.Config, &run.Result, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (db *PostgresDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT id, question, status, config, result, created_at, updated_at
		FROM research_runs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		if err := rows.Scan(&run.ID, &run.Question, &run.Status, &run.Config, &run.Result, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (db *PostgresDB) AppendLog(ctx context.Context, runID uuid.UUID, ts time.Time, level, message string, metadata json.RawMessage) error {
	query := `
		INSERT INTO research_logs (run_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Pool.Exec(ctx, query, runID, ts, level, message, metadata)
	return err
}

func (db *PostgresDB) GetRunLogs(ctx context.Context, runID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE run_id = $1
		ORDER BY id ASC
	`
	rows, err := db.Pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}
