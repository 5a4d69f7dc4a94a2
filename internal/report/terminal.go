package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

var (
	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ccff"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))
)

// Series renders values as an asciigraph line chart.
func Series(caption string, values []float64) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// MultiSeries draws several series on shared axes; series must not be empty.
func MultiSeries(caption string, series ...[]float64) string {
	if len(series) == 0 {
		return ""
	}
	colors := []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Red, asciigraph.Blue, asciigraph.Green}
	opts := []asciigraph.Option{
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	}
	if len(series) <= len(colors) {
		opts = append(opts, asciigraph.SeriesColors(colors[:len(series)]...))
	}
	return asciigraph.PlotMany(series, opts...)
}

func Heading(text string) string {
	return headingStyle.Render(text)
}

// Table formats named columns as aligned text with a styled header row.
func Table(header []string, cols [][]float64) string {
	var b strings.Builder
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = fmt.Sprintf("%14s", h)
	}
	b.WriteString(labelStyle.Render(strings.Join(cells, " ")))
	b.WriteByte('\n')

	if len(cols) == 0 {
		return b.String()
	}
	for r := range cols[0] {
		for c := range cols {
			cells[c] = fmt.Sprintf("%14.6g", cols[c][r])
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteByte('\n')
	}
	return b.String()
}
