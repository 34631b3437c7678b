// Package analysis implements the numeric core: linear trend fitting,
// spectral decomposition of the residuals, trend+cycle forecasting, and
// the Cauchy-kernel correlation sweep. Every entry point takes an
// explicit parameter struct and computes deterministically from its
// arguments alone; nothing in this package performs I/O or retries.
package analysis

import "fmt"

// InsufficientDataError reports a series too short to fit or decompose.
type InsufficientDataError struct {
	Points   int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d points, got %d", e.Required, e.Points)
}

// DegenerateSeriesError reports a zero-variance input series. The fit
// itself is mathematically valid (all residuals are zero), so the trend
// fitter flags the condition on its result instead of failing; this
// error exists for callers that require non-flat input.
type DegenerateSeriesError struct {
	Points int
}

func (e *DegenerateSeriesError) Error() string {
	return fmt.Sprintf("degenerate series: all %d values are identical", e.Points)
}

// InvalidComponentCountError reports a component count K outside the
// range supported by a length-N decomposition (1 <= K <= N/2).
type InvalidComponentCountError struct {
	Count int
	Max   int
}

func (e *InvalidComponentCountError) Error() string {
	return fmt.Sprintf("invalid component count %d: must be between 1 and %d", e.Count, e.Max)
}

// InvalidHorizonError reports a non-positive forecast horizon.
type InvalidHorizonError struct {
	Horizon int
}

func (e *InvalidHorizonError) Error() string {
	return fmt.Sprintf("invalid forecast horizon %d: must be positive", e.Horizon)
}

// InsufficientWindowError reports a correlation window that exceeds the
// available price history at some required offset.
type InsufficientWindowError struct {
	Window    int
	Available int
}

func (e *InsufficientWindowError) Error() string {
	return fmt.Sprintf("insufficient window: need %d points, have %d", e.Window, e.Available)
}
