package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GapSentinel/internal/model"
)

func openTemp(t *testing.T) *SQLiteRecorder {
	t.Helper()
	rec, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "data", "gaps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return rec
}

func fullResult() *model.MetricsResult {
	req := model.MetricsRequest{Symbol: "QMCO", Date: time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)}
	res := model.EmptyResult(req)
	res.OpenPrice = decimal.NewNullDecimal(decimal.RequireFromString("1.52"))
	res.ClosePrice = decimal.NewNullDecimal(decimal.RequireFromString("1.60"))
	res.RelativeVolume = decimal.NewNullDecimal(decimal.RequireFromString("2.35"))
	res.Volume = null.IntFrom(250000)
	res.AvgVolume10D = decimal.NewNullDecimal(decimal.RequireFromString("106382.9"))
	res.GapToday = model.PercentOf(decimal.RequireFromString("1.33"))
	res.GapTomorrow = model.PercentOf(decimal.RequireFromString("-0.62"))
	res.ChangeFromOpen = model.PercentOf(decimal.RequireFromString("5.26"))
	res.ChangeForWeek = model.PercentOf(decimal.RequireFromString("12.68"))
	return res
}

func TestSQLiteRecorder_RecordAndRead(t *testing.T) {
	rec := openTemp(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, fullResult()))
	rows, err := rec.Rows(ctx, "QMCO")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "QMCO", row.Symbol)
	assert.Equal(t, "2025-02-12", row.Date)
	assert.InDelta(t, 1.52, row.OpenPrice.Float64, 1e-9)
	assert.InDelta(t, 2.35, row.RelativeVolume.Float64, 1e-9)
	assert.Equal(t, int64(250000), row.Volume.Int64)
	assert.Equal(t, "1.33%", row.GapToday)
	assert.Equal(t, "-0.62%", row.GapTomorrow)
	assert.Equal(t, "12.68%", row.ChangeForWeek)
}

func TestSQLiteRecorder_UnavailableFieldsAreNull(t *testing.T) {
	rec := openTemp(t)
	ctx := context.Background()

	res := model.EmptyResult(model.MetricsRequest{Symbol: "BSLK", Date: time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, rec.Record(ctx, res))

	rows, err := rec.Rows(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].OpenPrice.Valid)
	assert.False(t, rows[0].RelativeVolume.Valid)
	assert.False(t, rows[0].Volume.Valid)
	assert.False(t, rows[0].AvgVolume10D.Valid)
	assert.Equal(t, model.NotAvailable, rows[0].GapToday)
	assert.Equal(t, model.NotAvailable, rows[0].ChangeForWeek)
}

func TestSQLiteRecorder_AppendOnly(t *testing.T) {
	rec := openTemp(t)
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, fullResult()))
	require.NoError(t, rec.Record(ctx, fullResult()))
	rows, err := rec.Rows(ctx, "QMCO")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "duplicate requests produce duplicate rows")

	other, err := rec.Rows(ctx, "OTHER")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSQLiteRecorder_Runs(t *testing.T) {
	rec := openTemp(t)
	ctx := context.Background()

	start := time.Date(2025, 2, 13, 22, 30, 0, 0, time.UTC)
	run := &Run{ID: "run-1", Source: "mock", StartedAt: start, Requests: 3}
	require.NoError(t, rec.StartRun(ctx, run))

	run.FinishedAt = start.Add(4 * time.Second)
	run.Failures = 1
	require.NoError(t, rec.FinishRun(ctx, run))

	got, err := rec.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.ID)
	assert.Equal(t, "mock", got.Source)
	assert.Equal(t, start, got.StartedAt)
	assert.Equal(t, run.FinishedAt, got.FinishedAt)
	assert.Equal(t, 3, got.Requests)
	assert.Equal(t, 1, got.Failures)
}

func TestSQLiteRecorder_ReopenKeepsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.db")
	ctx := context.Background()

	rec, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, rec.Record(ctx, fullResult()))
	require.NoError(t, rec.Close())

	rec, err = NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer rec.Close()
	rows, err := rec.Rows(ctx, "")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	rec, err := Open(ctx, "none", "", "")
	require.NoError(t, err)
	assert.IsType(t, &NoopRecorder{}, rec)
	assert.NoError(t, rec.Record(ctx, fullResult()))

	_, err = Open(ctx, "mysql", "", "")
	assert.Error(t, err)
}

func TestPostgresRecorder(t *testing.T) {
	dsn := os.Getenv("GAPSENTINEL_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("GAPSENTINEL_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	rec, err := NewPostgresRecorder(ctx, dsn)
	require.NoError(t, err)
	defer rec.Close()

	res := fullResult()
	res.Symbol = "PGTEST"
	require.NoError(t, rec.Record(ctx, res))
	rows, err := rec.Rows(ctx, "PGTEST")
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "1.33%", rows[len(rows)-1].GapToday)
}

func TestMigrate_ErrorQuotesStatement(t *testing.T) {
	rec := openTemp(t)

	var err error
	require.NotPanics(t, func() { err = migrate(context.Background(), rec.db, []string{"BOGUS"}) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"BOGUS"`)

	long := "CREATE TABLE broken (id INTEGER PRIMARY KEY, name TEXT NOT NULL,"
	err = migrate(context.Background(), rec.db, []string{long})
	require.Error(t, err)
	assert.Contains(t, err.Error(), long[:40]+"...")
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 40))
	assert.Equal(t, "ab...", shorten("abc", 2))
}
