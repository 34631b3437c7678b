package services

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thomasly/option-analysis/internal/analysis"
	"github.com/thomasly/option-analysis/internal/models"
)

var titleCaser = cases.Title(language.English)

// RunReport is the full result of one spectral analysis run, handed to
// the notification sinks and the API layer.
type RunReport struct {
	Run           models.AnalysisRun       `json:"run"`
	Points        int                      `json:"points"`
	Trend         *analysis.TrendFit       `json:"trend,omitempty"`
	Decomposition *analysis.Decomposition  `json:"decomposition,omitempty"`
	Forecast      *analysis.ForecastResult `json:"forecast,omitempty"`
	Overlay       *OverlaySnapshot         `json:"overlay,omitempty"`
}

// Title is the human-readable report heading, e.g.
// "399006.SZ Daily Spectral Report".
func (r *RunReport) Title() string {
	return fmt.Sprintf("%s %s Spectral Report", r.Run.Symbol, titleCaser.String(r.Run.Frequency.Label()))
}

// Summary renders the report as plain text for email and Telegram
// delivery.
func (r *RunReport) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Title())
	fmt.Fprintf(&b, "Run %s, status %s, %d points\n", r.Run.ID, r.Run.Status, r.Points)
	fmt.Fprintf(&b, "Started %s\n\n", r.Run.StartedAt.Format(time.RFC3339))

	if r.Run.Status == models.RunStatusFailed {
		fmt.Fprintf(&b, "Failed: %s (parameter %s)\n%s\n", r.Run.ErrorKind, r.Run.ErrorParam, r.Run.ErrorDetail)
		return b.String()
	}

	if r.Trend != nil {
		fmt.Fprintf(&b, "Trend: slope %.6f, intercept %.4f", r.Trend.Model.Slope, r.Trend.Model.Intercept)
		if r.Trend.Degenerate {
			b.WriteString(" (flat series)")
		}
		b.WriteString("\n")
	}

	if r.Decomposition != nil {
		fmt.Fprintf(&b, "Top %d cycles:\n", len(r.Decomposition.Components))
		for _, c := range r.Decomposition.Components {
			fmt.Fprintf(&b, "  bin %d  period %.1f bars  amplitude %.4f  phase %.3f\n",
				c.Bin, c.Period, c.Amplitude, c.Phase)
		}
	}

	if r.Forecast != nil && len(r.Forecast.Combined) > 0 {
		last := len(r.Forecast.Combined) - 1
		fmt.Fprintf(&b, "Forecast: next %.4f, +%d bars %.4f\n",
			r.Forecast.Combined[0], last+1, r.Forecast.Combined[last])
	}

	if r.Overlay != nil {
		b.WriteString("Overlay:\n")
		for _, ind := range r.Overlay.Indicators {
			fmt.Fprintf(&b, "  %s %s (%s)\n", ind.Name, ind.Value.StringFixed(4), ind.Signal)
		}
	}

	return b.String()
}

// CorrelationReport is the result of one kernel correlation sweep.
type CorrelationReport struct {
	Run        models.AnalysisRun         `json:"run"`
	Window     int                        `json:"window"`
	Grids      []analysis.CorrelationGrid `json:"grids"`
	Normalized []analysis.NormalizedGrid  `json:"normalized"`
}

// Title is the heading for a correlation sweep report.
func (r *CorrelationReport) Title() string {
	return fmt.Sprintf("%s %s Kernel Correlation Sweep", r.Run.Symbol, titleCaser.String(r.Run.Frequency.Label()))
}

// Summary renders the sweep as plain text. Only the latest grid's best
// cell is spelled out; grid counts cover the rest.
func (r *CorrelationReport) Summary() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", r.Title())
	fmt.Fprintf(&b, "Run %s, status %s, window %d bars, %d grids\n",
		r.Run.ID, r.Run.Status, r.Window, len(r.Grids))

	if r.Run.Status == models.RunStatusFailed {
		fmt.Fprintf(&b, "Failed: %s (parameter %s)\n%s\n", r.Run.ErrorKind, r.Run.ErrorParam, r.Run.ErrorDetail)
		return b.String()
	}

	if latest := r.latestGrid(); latest != nil {
		if best, ok := latest.Best(); ok {
			fmt.Fprintf(&b, "Best cell: center %.2f, gamma %.2f, correlation %.4f\n",
				best.Center, best.Gamma, best.Coefficient)
		} else {
			b.WriteString("All cells degenerate in the latest window\n")
		}
	}

	return b.String()
}

// latestGrid returns the grid for the window ending at the most recent
// sample. The mapper assigns that window offset 0 and orders a full
// sweep from offset 0 upward, so slice position is not recency.
func (r *CorrelationReport) latestGrid() *analysis.CorrelationGrid {
	for i := range r.Grids {
		if r.Grids[i].Offset == 0 {
			return &r.Grids[i]
		}
	}
	return nil
}
