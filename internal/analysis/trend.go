package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/thomasly/option-analysis/internal/models"
)

// TrendModel is a least-squares line fitted over the sample index
// domain. FitStart and FitEnd record the index range the fit covers.
type TrendModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	FitStart  int     `json:"fit_start"`
	FitEnd    int     `json:"fit_end"`
}

// ValueAt evaluates the fitted line at sample index i. Indices past
// FitEnd extrapolate the line, which is how the forecaster extends it.
func (m TrendModel) ValueAt(i int) float64 {
	return m.Slope*float64(i) + m.Intercept
}

// TrendFit bundles the fitted model with the residual series
// (actual - trend, on the source timeline). Degenerate is set when the
// input had zero variance: the fit is still valid and the residuals are
// all zero, but downstream spectral filtering of an all-zero signal is
// pointless, so callers are expected to branch on the flag.
type TrendFit struct {
	Model      TrendModel         `json:"model"`
	Residuals  *models.TimeSeries `json:"-"`
	Degenerate bool               `json:"degenerate,omitempty"`
}

// FitTrend fits a least-squares line to the series values against their
// sample index and returns the model together with the residuals.
func FitTrend(series *models.TimeSeries) (*TrendFit, error) {
	n := series.Len()
	if n < 2 {
		return nil, &InsufficientDataError{Points: n, Required: 2}
	}

	values := series.Values()
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	degenerate := true
	for _, v := range values[1:] {
		if v != values[0] {
			degenerate = false
			break
		}
	}

	var intercept, slope float64
	if degenerate {
		// Zero variance: the least-squares line is flat at the
		// common value and residuals are exactly zero.
		intercept = values[0]
	} else {
		intercept, slope = stat.LinearRegression(xs, values, nil, false)
	}

	residuals := make([]float64, n)
	for i, v := range values {
		residuals[i] = v - (slope*xs[i] + intercept)
	}
	residualSeries, err := series.WithValues(residuals)
	if err != nil {
		return nil, err
	}

	return &TrendFit{
		Model: TrendModel{
			Slope:     slope,
			Intercept: intercept,
			FitStart:  0,
			FitEnd:    n - 1,
		},
		Residuals:  residualSeries,
		Degenerate: degenerate,
	}, nil
}
