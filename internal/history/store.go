package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one pipeline invocation.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	VideoPath    string
	SubtitlePath string
	OutputDir    string
	Source       string
	Encoder      string
	RangeCount   int
	Status       Status
	ErrorMessage string
}

// Artifact is the clip pair produced for one range.
type Artifact struct {
	RangeIndex   int
	Label        string
	Precise      bool
	VideoPath    string
	SubtitlePath string
}

// Store manages run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	// Pragmas are per connection, so they go on the DSN. Prune relies on the
	// artifacts cascade.
	dsn := (&url.URL{
		Scheme:   "file",
		Path:     path,
		RawQuery: "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite db %s: %w", path, err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	source := strings.TrimSpace(run.Source)
	if source == "" {
		source = "cli"
	}
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, video_path, subtitle_path, output_dir, source, encoder, range_count, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.VideoPath,
		run.SubtitlePath,
		run.OutputDir,
		source,
		run.Encoder,
		run.RangeCount,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// SetEncoder records the encoder variant chosen once probing completes.
func (s *Store) SetEncoder(ctx context.Context, runID, encoder string) error {
	if _, err := s.exec(ctx, "UPDATE runs SET encoder = ? WHERE id = ?", encoder, runID); err != nil {
		return fmt.Errorf("update run %s encoder: %w", runID, err)
	}
	return nil
}

// AddArtifact appends a produced clip to the run.
func (s *Store) AddArtifact(ctx context.Context, runID string, artifact Artifact) error {
	precise := 0
	if artifact.Precise {
		precise = 1
	}
	_, err := s.exec(ctx,
		`INSERT INTO artifacts (run_id, range_index, label, precise, video_path, subtitle_path)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		runID, artifact.RangeIndex, artifact.Label, precise, artifact.VideoPath, artifact.SubtitlePath,
	)
	if err != nil {
		return fmt.Errorf("insert artifact for run %s: %w", runID, err)
	}
	return nil
}

// FinishRun marks the run terminal.
func (s *Store) FinishRun(ctx context.Context, runID string, status Status, message string) error {
	res, err := s.exec(ctx,
		"UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?",
		status, strings.TrimSpace(message), time.Now().UTC().Format(time.RFC3339Nano), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

const runColumns = "id, started_at, finished_at, video_path, subtitle_path, output_dir, source, encoder, range_count, status, error_message"

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Artifacts returns the clips recorded for runID in range order.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT range_index, label, precise, video_path, subtitle_path FROM artifacts WHERE run_id = ? ORDER BY range_index",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a       Artifact
			precise int
		)
		if err := rows.Scan(&a.RangeIndex, &a.Label, &precise, &a.VideoPath, &a.SubtitlePath); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Precise = precise != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// Prune deletes finished runs that started before cutoff and returns the
// number removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.exec(ctx,
		"DELETE FROM runs WHERE status != ? AND started_at < ?",
		StatusRunning, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run      Run
		started  string
		finished sql.NullString
		status   string
	)
	err := row.Scan(&run.ID, &started, &finished, &run.VideoPath, &run.SubtitlePath, &run.OutputDir,
		&run.Source, &run.Encoder, &run.RangeCount, &status, &run.ErrorMessage)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	run.StartedAt = parseTime(started)
	if finished.Valid {
		run.FinishedAt = parseTime(finished.String)
	}
	return run, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
