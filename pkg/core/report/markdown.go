package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"valuation_dashboard/pkg/core/pipeline"
	"valuation_dashboard/pkg/core/valuation"
)

var renderer = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders the summary table followed by the working-capital table.
func Markdown(rep *pipeline.Report) string {
	var sb strings.Builder

	title := rep.Ticker
	if rep.Name != "" {
		title = fmt.Sprintf("%s (%s)", rep.Ticker, rep.Name)
	}
	fmt.Fprintf(&sb, "## Valuation summary: %s\n\n", title)
	fmt.Fprintf(&sb, "Fiscal period %s", rep.Period)
	if rep.Currency != "" {
		fmt.Fprintf(&sb, ", figures in %s", rep.Currency)
	}
	fmt.Fprintf(&sb, ". Run `%s`.\n\n", rep.RunID)

	header := []string{"Section", "Metric", "Value", "Note"}
	body := make([][]string, 0, 40)
	for _, r := range Rows(rep) {
		body = append(body, []string{string(r.Section), r.Metric, r.Value, r.Note})
	}
	writeTable(&sb, header, []bool{false, false, true, false}, body)

	sb.WriteString("\n### Working capital\n\n")
	writeWorkingCapital(&sb, rep.WorkingCapital, "", nil)
	return sb.String()
}

// WorkingCapitalMarkdown renders a working-capital report, with the overlay
// column when the report carries one.
func WorkingCapitalMarkdown(wc *pipeline.WorkingCapitalReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Working capital: %s (last %d periods)\n\n", wc.Ticker, wc.Window)
	writeWorkingCapital(&sb, wc.Periods, wc.OverlaySeries, wc.Overlay)
	return sb.String()
}

// ForecastMarkdown renders forecast rows.
func ForecastMarkdown(ticker string, rows []valuation.ForecastPeriod) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## NOPAT forecast: %s\n\n", ticker)

	header := []string{"Period", "NOPAT", "Value (no growth)", "Value (with growth)", "Price (no growth)", "Price (with growth)", "PV of NOPAT"}
	body := make([][]string, len(rows))
	for i, r := range rows {
		body[i] = []string{
			fmt.Sprintf("%d", r.Period),
			Money(r.NOPAT),
			MoneyEstimate(r.ValueNoGrowth),
			MoneyEstimate(r.ValueWithGrowth),
			MoneyEstimate(r.PriceNoGrowth),
			MoneyEstimate(r.PriceWithGrowth),
			MoneyEstimate(r.PresentValue),
		}
	}
	writeTable(&sb, header, []bool{false, true, true, true, true, true, true}, body)
	return sb.String()
}

// HTML renders markdown (with pipe tables) to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

func writeWorkingCapital(sb *strings.Builder, periods []valuation.WorkingCapitalMetrics, series string, overlay []valuation.OverlayPoint) {
	if len(periods) == 0 {
		sb.WriteString("No balance-sheet periods reported.\n")
		return
	}

	header := []string{"Period", "DIO", "DSO", "DPO", "CCC", "NWC", "Change in NWC"}
	right := []bool{false, true, true, true, true, true, true}
	if len(overlay) > 0 {
		header = append(header, series)
		right = append(right, true)
	}

	rows := WorkingCapitalRows(periods, overlay)
	body := make([][]string, len(rows))
	for i, r := range rows {
		body[i] = []string{r.Period, r.DaysInventory, r.DaysSales, r.DaysPayable, r.CashConversion, r.NetWorkingCapital, r.ChangeInNWC}
		if len(overlay) > 0 {
			body[i] = append(body[i], r.Overlay)
		}
	}
	writeTable(sb, header, right, body)
}

// writeTable writes a pipe table; right marks right-aligned columns.
func writeTable(sb *strings.Builder, header []string, right []bool, body [][]string) {
	sb.WriteString("|")
	for _, h := range header {
		sb.WriteString(" " + escapeCell(h) + " |")
	}
	sb.WriteString("\n|")
	for i := range header {
		if i < len(right) && right[i] {
			sb.WriteString(" ---: |")
		} else {
			sb.WriteString(" --- |")
		}
	}
	sb.WriteString("\n")

	for _, row := range body {
		sb.WriteString("|")
		for _, cell := range row {
			if cell == "" {
				cell = " "
			}
			sb.WriteString(" " + escapeCell(cell) + " |")
		}
		sb.WriteString("\n")
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "&#124;")
}
