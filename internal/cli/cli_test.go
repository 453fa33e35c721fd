package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"GapSentinel/internal/recorder"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func emptyConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.yaml")
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "gapsentinel test\n", out)
}

func TestCalendarCmd(t *testing.T) {
	out, err := execute(t, "calendar", "2025-02-15", "--config", emptyConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "Previous: 2025-02-14\nTarget: 2025-02-15 (closed)\nNext: 2025-02-17\n", out)

	_, err = execute(t, "calendar", "15/02/2025", "--config", emptyConfig(t))
	assert.Error(t, err)
}

func TestCalendarCmd_Holidays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("calendar:\n  holidays: [\"2025-02-17\"]\n"), 0o644))

	out, err := execute(t, "calendar", "2025-02-14", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Next: 2025-02-18")
}

func TestRunCmd_Mock(t *testing.T) {
	xlsx := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := execute(t, "run", "--config", emptyConfig(t), "--provider", "mock", "--no-store",
		"--symbol", "QMCO", "--date", "2025-02-12", "--symbol", "BSLK", "--date", "2025-02-11",
		"--xlsx", xlsx)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(out, "Stock Data:"))
	assert.Contains(t, out, "Symbol: QMCO")
	assert.Contains(t, out, "Date: 2025-02-11")
	assert.Less(t, strings.Index(out, "QMCO"), strings.Index(out, "BSLK"), "results keep request order")

	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Stock Data")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestRunCmd_StoresToSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "gaps.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
data_source:
  provider: mock
database:
  driver: sqlite
  sqlite_path: `+dbPath+`
watchlist:
  - symbol: QMCO
    date: "2025-02-12"
  - symbol: AAPL
`), 0o644))

	_, err := execute(t, "run", "--config", cfgPath)
	require.NoError(t, err)

	rec, err := recorder.NewSQLiteRecorder(dbPath)
	require.NoError(t, err)
	defer rec.Close()
	rows, err := rec.Rows(t.Context(), "")
	require.NoError(t, err)
	require.Len(t, rows, 1, "undated watchlist entries are skipped by run")
	assert.Equal(t, "QMCO", rows[0].Symbol)

	run, err := rec.LastRun(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "mock", run.Source)
	assert.Equal(t, 1, run.Requests)
}

func TestRunCmd_InvalidInput(t *testing.T) {
	_, err := execute(t, "run", "--config", emptyConfig(t), "--provider", "mock", "--no-store",
		"--symbol", "QMCO", "--date", "2025-13-01")
	assert.Error(t, err)

	_, err = execute(t, "run", "--config", emptyConfig(t), "--provider", "mock", "--no-store")
	assert.Error(t, err, "no requests")
}

func TestBuildRequests(t *testing.T) {
	reqs, err := buildRequests([]string{"QMCO", "BSLK"}, []string{"2025-02-12"})
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "BSLK@2025-02-12", reqs[1].String())

	_, err = buildRequests([]string{"QMCO", "BSLK", "AAPL"}, []string{"2025-02-12", "2025-02-13"})
	assert.Error(t, err)

	reqs, err = buildRequests(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestIsTerminal(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.False(t, isTerminal(cmd), "buffers are never terminals")

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()
	cmd.SetOut(f)
	assert.False(t, isTerminal(cmd), "regular files are not terminals")
}
