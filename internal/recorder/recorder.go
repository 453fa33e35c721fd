package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"GapSentinel/internal/model"
)

// Run is one batch invocation, kept in the runs audit table.
type Run struct {
	ID         string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Requests   int
	Failures   int
}

// Recorder persists metrics results. Rows are append-only: recording the same
// request twice stores two rows.
type Recorder interface {
	StartRun(ctx context.Context, run *Run) error
	Record(ctx context.Context, res *model.MetricsResult) error
	FinishRun(ctx context.Context, run *Run) error
	Close() error
}

// Row is the storage form of a MetricsResult, one column per field.
// Unavailable numeric values are NULL; percentages are stored as text.
type Row struct {
	Symbol         string
	Date           string
	OpenPrice      sql.NullFloat64
	ClosePrice     sql.NullFloat64
	RelativeVolume sql.NullFloat64
	Volume         sql.NullInt64
	AvgVolume10D   sql.NullFloat64
	GapToday       string
	GapTomorrow    string
	ChangeFromOpen string
	ChangeForWeek  string
}

// NewRow converts a result into its storage row.
func NewRow(res *model.MetricsResult) Row {
	return Row{
		Symbol:         res.Symbol,
		Date:           res.Date.Format(model.DateLayout),
		OpenPrice:      nullFloat(res.OpenPrice),
		ClosePrice:     nullFloat(res.ClosePrice),
		RelativeVolume: nullFloat(res.RelativeVolume),
		Volume:         sql.NullInt64{Int64: res.Volume.ValueOrZero(), Valid: res.Volume.Valid},
		AvgVolume10D:   nullFloat(res.AvgVolume10D),
		GapToday:       res.GapToday.String(),
		GapTomorrow:    res.GapTomorrow.String(),
		ChangeFromOpen: res.ChangeFromOpen.String(),
		ChangeForWeek:  res.ChangeForWeek.String(),
	}
}

func (r Row) args() []any {
	return []any{
		r.Symbol, r.Date, r.OpenPrice, r.ClosePrice, r.RelativeVolume, r.Volume,
		r.AvgVolume10D, r.GapToday, r.GapTomorrow, r.ChangeFromOpen, r.ChangeForWeek,
	}
}

func (r *Row) dest() []any {
	return []any{
		&r.Symbol, &r.Date, &r.OpenPrice, &r.ClosePrice, &r.RelativeVolume, &r.Volume,
		&r.AvgVolume10D, &r.GapToday, &r.GapTomorrow, &r.ChangeFromOpen, &r.ChangeForWeek,
	}
}

const resultColumns = `Symbol, Date, OpenPrice, ClosePrice, RelativeVolume, Volume,
	AvgVolume10D, GapToday, GapTomorrow, ChangeFromOpen, ChangeForWeek`

// schema returns the DDL for both tables. realType names the driver's
// double precision column type. stock_data has no key.
func schema(realType string) []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS stock_data (
			Symbol         TEXT,
			Date           TEXT,
			OpenPrice      ` + realType + `,
			ClosePrice     ` + realType + `,
			RelativeVolume ` + realType + `,
			Volume         BIGINT,
			AvgVolume10D   ` + realType + `,
			GapToday       TEXT,
			GapTomorrow    TEXT,
			ChangeFromOpen TEXT,
			ChangeForWeek  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stock_data_symbol_date ON stock_data(Symbol, Date)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			started_at  BIGINT NOT NULL,
			finished_at BIGINT,
			source      TEXT,
			requests    INTEGER,
			failures    INTEGER
		)`,
	}
}

func nullFloat(d decimal.NullDecimal) sql.NullFloat64 {
	if !d.Valid {
		return sql.NullFloat64{}
	}
	f, _ := d.Decimal.Float64()
	return sql.NullFloat64{Float64: f, Valid: true}
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("scan stock_data: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// Open returns the recorder for driver: "sqlite", "postgres" or "none".
func Open(ctx context.Context, driver, sqlitePath, postgresDSN string) (Recorder, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteRecorder(sqlitePath)
	case "postgres":
		return NewPostgresRecorder(ctx, postgresDSN)
	case "none":
		return NewNoopRecorder(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
