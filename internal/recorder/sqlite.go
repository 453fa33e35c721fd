package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"GapSentinel/internal/model"
)

// SQLiteRecorder persists results to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{
		db:     db,
		logger: log.With().Str("component", "sqlite_recorder").Logger(),
	}
	if err := migrate(context.Background(), db, schema("REAL")); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func migrate(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", shorten(s, 40), err)
		}
	}
	return nil
}

// shorten keeps error messages readable for long DDL.
func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func (r *SQLiteRecorder) StartRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO runs (run_id, started_at, source, requests, failures)
		VALUES (?,?,?,?,?)`,
		run.ID, run.StartedAt.Unix(), run.Source, run.Requests, run.Failures,
	)
	return err
}

func (r *SQLiteRecorder) Record(ctx context.Context, res *model.MetricsResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO stock_data (`+resultColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`, NewRow(res).args()...)
	return err
}

func (r *SQLiteRecorder) FinishRun(ctx context.Context, run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `UPDATE runs SET finished_at = ?, requests = ?, failures = ? WHERE run_id = ?`,
		run.FinishedAt.Unix(), run.Requests, run.Failures, run.ID,
	)
	return err
}

// Rows returns the stored results for symbol in insertion order. An empty
// symbol returns every row.
func (r *SQLiteRecorder) Rows(ctx context.Context, symbol string) ([]Row, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `SELECT ` + resultColumns + ` FROM stock_data`
	var args []any
	if symbol != "" {
		query += ` WHERE Symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY rowid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock_data: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// LastRun returns the most recently started run.
func (r *SQLiteRecorder) LastRun(ctx context.Context) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		run               Run
		started           int64
		finished          sql.NullInt64
		requests, failure sql.NullInt64
		source            sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT run_id, started_at, finished_at, source, requests, failures
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).
		Scan(&run.ID, &started, &finished, &source, &requests, &failure)
	if err != nil {
		return nil, err
	}
	run.StartedAt = unixTime(started)
	if finished.Valid {
		run.FinishedAt = unixTime(finished.Int64)
	}
	run.Source = source.String
	run.Requests = int(requests.Int64)
	run.Failures = int(failure.Int64)
	return &run, nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
