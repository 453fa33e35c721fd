package notifier

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"GapSentinel/internal/model"
)

// Separator closes every printed record.
const Separator = "--------------------"

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6"))

	naStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	upStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	downStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444"))

	sepStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#374151"))
)

// FormatResult renders one result as a "Stock Data:" block of Key: value lines.
func FormatResult(res *model.MetricsResult) string {
	var b strings.Builder
	b.WriteString("Stock Data:\n")
	for _, f := range res.Fields() {
		b.WriteString(fmt.Sprintf("%s: %s\n", f.Label, f.Value))
	}
	b.WriteString(Separator + "\n")
	return b.String()
}

// FormatResultStyled is FormatResult with terminal colors. Negative
// percentages are red, positive green, missing values grey.
func FormatResultStyled(res *model.MetricsResult) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Stock Data:") + "\n")
	for _, f := range res.Fields() {
		b.WriteString(labelStyle.Render(f.Label+":") + " " + styleValue(f.Value) + "\n")
	}
	b.WriteString(sepStyle.Render(Separator) + "\n")
	return b.String()
}

func styleValue(v string) string {
	switch {
	case v == model.NotAvailable:
		return naStyle.Render(v)
	case strings.HasSuffix(v, "%") && strings.HasPrefix(v, "-"):
		return downStyle.Render(v)
	case strings.HasSuffix(v, "%") && v != "0.00%":
		return upStyle.Render(v)
	default:
		return v
	}
}

// PrintResults writes every result to w in order.
func PrintResults(w io.Writer, results []*model.MetricsResult, styled bool) error {
	for _, res := range results {
		out := FormatResult(res)
		if styled {
			out = FormatResultStyled(res)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

// FormatRunSummary formats a batch run into a Telegram HTML message.
func FormatRunSummary(runID string, results []*model.MetricsResult, failures int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>GapSentinel</b> | run %s\n\n", shortID(runID)))
	for _, res := range results {
		b.WriteString(fmt.Sprintf("<b>%s</b> %s: gap %s, next %s, rvol %s\n",
			res.Symbol, res.Date.Format(model.DateLayout),
			res.GapToday, res.GapTomorrow, nullText(res.RelativeVolume.Valid, res.RelativeVolume.Decimal.StringFixed(2))))
	}
	if failures > 0 {
		b.WriteString(fmt.Sprintf("\n⚠️ %d request(s) failed\n", failures))
	}
	return b.String()
}

func nullText(valid bool, s string) string {
	if !valid {
		return model.NotAvailable
	}
	return s
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
