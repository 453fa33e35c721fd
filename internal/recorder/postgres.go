package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"GapSentinel/internal/model"
)

// PostgresRecorder persists results to a Postgres database through lib/pq.
// database/sql pools connections, so no extra locking is needed.
type PostgresRecorder struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewPostgresRecorder connects with dsn, verifies the connection and runs migrations.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := migrate(ctx, db, schema("DOUBLE PRECISION")); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r := &PostgresRecorder{db: db, logger: log.With().Str("component", "postgres_recorder").Logger()}
	r.logger.Info().Msg("postgres recorder opened")
	return r, nil
}

func (r *PostgresRecorder) StartRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO runs (run_id, started_at, source, requests, failures)
		VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.StartedAt.Unix(), run.Source, run.Requests, run.Failures,
	)
	return err
}

func (r *PostgresRecorder) Record(ctx context.Context, res *model.MetricsResult) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO stock_data (`+resultColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, NewRow(res).args()...)
	return err
}

func (r *PostgresRecorder) FinishRun(ctx context.Context, run *Run) error {
	_, err := r.db.ExecContext(ctx, `UPDATE runs SET finished_at = $1, requests = $2, failures = $3 WHERE run_id = $4`,
		run.FinishedAt.Unix(), run.Requests, run.Failures, run.ID,
	)
	return err
}

// Rows returns the stored results for symbol. An empty symbol returns every row.
func (r *PostgresRecorder) Rows(ctx context.Context, symbol string) ([]Row, error) {
	query := `SELECT ` + resultColumns + ` FROM stock_data`
	var args []any
	if symbol != "" {
		query += ` WHERE Symbol = $1`
		args = append(args, symbol)
	}
	query += ` ORDER BY ctid`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query stock_data: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (r *PostgresRecorder) Close() error {
	r.logger.Info().Msg("closing postgres recorder")
	return r.db.Close()
}
