package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded ygrep invocation.
type Run struct {
	ID           string
	StartedAt    time.Time
	Duration     time.Duration
	Pattern      string
	Paths        []string
	IgnoreCase   bool
	Files        int
	FilesMatched int
	Matches      int
	Binary       int
	Bytes        int64
	Errors       int
	ExitCode     int
}

// RecordRun inserts run. An empty ID is replaced with a new random UUID, and a
// zero StartedAt with the current time.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	paths, err := json.Marshal(run.Paths)
	if err != nil {
		return fmt.Errorf("marshal paths: %w", err)
	}

	query := `INSERT INTO runs
		(id, started_at, duration_ms, pattern, paths, ignore_case, files, files_matched, matches, binary_files, bytes, errors, exit_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UnixNano(),
		run.Duration.Milliseconds(),
		run.Pattern,
		string(paths),
		run.IgnoreCase,
		run.Files,
		run.FilesMatched,
		run.Matches,
		run.Binary,
		run.Bytes,
		run.Errors,
		run.ExitCode,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

const runColumns = `id, started_at, duration_ms, pattern, paths, ignore_case, files, files_matched, matches, binary_files, bytes, errors, exit_code`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var startedAt, durationMs int64
	var paths string
	if err := row.Scan(
		&run.ID,
		&startedAt,
		&durationMs,
		&run.Pattern,
		&paths,
		&run.IgnoreCase,
		&run.Files,
		&run.FilesMatched,
		&run.Matches,
		&run.Binary,
		&run.Bytes,
		&run.Errors,
		&run.ExitCode,
	); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	if err := json.Unmarshal([]byte(paths), &run.Paths); err != nil {
		return nil, fmt.Errorf("unmarshal paths of run %s: %w", run.ID, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, most recent first. A limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given ID. A missing run yields an error
// wrapping sql.ErrNoRows.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// Prune deletes all but the keep most recent runs and returns how many were
// removed. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE seq NOT IN (SELECT seq FROM runs ORDER BY seq DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return result.RowsAffected()
}
