package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/stakd-me/stakd-sub000/internal/models"
)

// maxPieSlices caps the pie legend; smaller positions collapse into "Other".
const maxPieSlices = 10

// renderAllocationChart renders the current allocation as a PNG pie chart.
func renderAllocationChart(summary *models.PortfolioSummary) ([]byte, error) {
	type slice struct {
		symbol string
		value  float64
	}

	slices := make([]slice, 0, len(summary.SymbolValues))
	for symbol, value := range summary.SymbolValues {
		if value > 0 {
			slices = append(slices, slice{symbol, value})
		}
	}
	if len(slices) == 0 {
		return nil, fmt.Errorf("no positive holdings to chart")
	}

	sort.Slice(slices, func(i, j int) bool {
		if slices[i].value != slices[j].value {
			return slices[i].value > slices[j].value
		}
		return slices[i].symbol < slices[j].symbol
	})

	if len(slices) > maxPieSlices {
		other := 0.0
		for _, s := range slices[maxPieSlices-1:] {
			other += s.value
		}
		slices = append(slices[:maxPieSlices-1], slice{"Other", other})
	}

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		pct := 0.0
		if summary.TotalValueUsd > 0 {
			pct = s.value / summary.TotalValueUsd * 100
		}
		values = append(values, chart.Value{
			Value: s.value,
			Label: fmt.Sprintf("%s %.1f%%", s.symbol, pct),
		})
	}

	pie := chart.PieChart{
		Title:  "Portfolio Allocation",
		Width:  600,
		Height: 600,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// renderDeviationChart renders per-target deviation as a PNG bar chart.
// Bars show |deviation|; color carries the side: red above target, blue
// below.
func renderDeviationChart(data *models.SuggestionsData) ([]byte, error) {
	bars := make([]chart.Value, 0, len(data.Targets))
	for _, t := range data.Targets {
		if t.IsUntargeted {
			continue
		}

		color := drawing.ColorFromHex("3b82f6") // blue-500, below target
		if t.Deviation > 0 {
			color = drawing.ColorFromHex("ef4444") // red-500, above target
		}

		deviation := t.Deviation
		if deviation < 0 {
			deviation = -deviation
		}

		bars = append(bars, chart.Value{
			Value: deviation,
			Label: fmt.Sprintf("%s %+.1f%%", t.TokenSymbol, t.Deviation),
			Style: chart.Style{
				FillColor:   color,
				StrokeColor: color,
			},
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no targets to chart")
	}

	graph := chart.BarChart{
		Title:    "Deviation From Target",
		Width:    900,
		Height:   400,
		BarWidth: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.1f%%", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
