package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, sample_folder, status, started_at, finished_at, sample_count, ob_candidates, dc_candidates, configuration_count, matched_ob, matched_dc, skipped_frames, diagnostics_path, error_message"

// Begin inserts run in the running state. StartedAt defaults to now.
func (s *Store) Begin(ctx context.Context, run *Run) error {
	if run == nil || strings.TrimSpace(run.ID) == "" {
		return errors.New("begin run: id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = StatusRunning
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, sample_folder, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.SampleFolder, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// Finish stores the final status and counts of run. FinishedAt defaults to now.
func (s *Store) Finish(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("finish run: nil run")
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, sample_count = ?, ob_candidates = ?, dc_candidates = ?,
		configuration_count = ?, matched_ob = ?, matched_dc = ?, skipped_frames = ?, diagnostics_path = ?, error_message = ?
		WHERE id = ?`,
		string(run.Status), formatTime(*run.FinishedAt), run.SampleCount, run.OBCandidates, run.DCCandidates,
		run.ConfigurationCount, run.MatchedOB, run.MatchedDC, run.SkippedFrames,
		nullableString(run.DiagnosticsPath), nullableString(run.ErrorMessage), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", run.ID)
	}
	return nil
}

// Get returns the run with id, or nil when it does not exist. A unique id
// prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? ORDER BY length(id), id LIMIT 2`,
		len(id), id,
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("get run: %w", err)
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	switch {
	case len(found) == 0:
		return nil, nil
	case found[0].ID == id || len(found) == 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("get run: prefix %q matches more than one run", id)
	}
}

// List returns the most recent runs first. A limit of zero or less returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		diagnostics sql.NullString
		errorMsg    sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.SampleFolder,
		&status,
		&startedRaw,
		&finishedRaw,
		&run.SampleCount,
		&run.OBCandidates,
		&run.DCCandidates,
		&run.ConfigurationCount,
		&run.MatchedOB,
		&run.MatchedDC,
		&run.SkippedFrames,
		&diagnostics,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.DiagnosticsPath = diagnostics.String
	run.ErrorMessage = errorMsg.String
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

// timeLayout keeps a fixed-width fraction so stored values sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

