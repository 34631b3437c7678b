package analysis

// ForecastParams configures the forward projection.
type ForecastParams struct {
	// Horizon is the number of future periods to project.
	Horizon int
}

// ForecastResult is the trend and cycle projection for H periods after
// the fitted domain. All three slices have length Horizon; Combined is
// the elementwise sum of Trend and Cycle.
type ForecastResult struct {
	Trend    []float64 `json:"trend"`
	Cycle    []float64 `json:"cycle"`
	Combined []float64 `json:"combined"`
}

// Forecast extrapolates the fitted line and continues each selected
// periodic component's sinusoid past the end of the fitted domain. The
// cycle extension reuses the fitted frequency, amplitude and phase, so
// there is no discontinuity at the boundary: the first forecast step is
// exactly the next sample of each sinusoid.
func Forecast(trend TrendModel, d *Decomposition, p ForecastParams) (*ForecastResult, error) {
	if p.Horizon <= 0 {
		return nil, &InvalidHorizonError{Horizon: p.Horizon}
	}

	result := &ForecastResult{
		Trend:    make([]float64, p.Horizon),
		Cycle:    make([]float64, p.Horizon),
		Combined: make([]float64, p.Horizon),
	}
	for h := 0; h < p.Horizon; h++ {
		idx := trend.FitEnd + 1 + h
		result.Trend[h] = trend.ValueAt(idx)
		result.Cycle[h] = d.EvaluateAt(float64(idx))
		result.Combined[h] = result.Trend[h] + result.Cycle[h]
	}
	return result, nil
}
