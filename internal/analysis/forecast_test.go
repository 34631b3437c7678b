package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecast_InvalidHorizon(t *testing.T) {
	d, err := Decompose(make([]float64, 10), DecomposeParams{Components: 1})
	require.NoError(t, err)

	for _, h := range []int{0, -5} {
		_, err := Forecast(TrendModel{}, d, ForecastParams{Horizon: h})

		var invalid *InvalidHorizonError
		require.ErrorAs(t, err, &invalid, "h=%d", h)
		assert.Equal(t, h, invalid.Horizon)
	}
}

func TestForecast_ExtendsLinearTrend(t *testing.T) {
	// With all-zero residuals the combined forecast is the pure line.
	values := make([]float64, 100)
	for i := range values {
		values[i] = 2*float64(i) + 5
	}
	fit, err := FitTrend(makeSeries(t, values))
	require.NoError(t, err)
	d, err := Decompose(fit.Residuals.Values(), DecomposeParams{Components: 6})
	require.NoError(t, err)

	forecast, err := Forecast(fit.Model, d, ForecastParams{Horizon: 5})
	require.NoError(t, err)

	require.Len(t, forecast.Combined, 5)
	for h := 0; h < 5; h++ {
		expected := 2*float64(100+h) + 5
		assert.InDelta(t, expected, forecast.Trend[h], 1e-6)
		assert.InDelta(t, 0.0, forecast.Cycle[h], 1e-6)
		assert.InDelta(t, expected, forecast.Combined[h], 1e-6)
	}
}

func TestForecast_PhaseContinuity(t *testing.T) {
	// The first forecast step of each sinusoid may differ from the
	// last fitted value by at most the component's own per-sample
	// rate of change.
	const n = 120
	residuals := sinusoid(n, 7, 4.0, 0.3)
	addInPlace(residuals, sinusoid(n, 15, 1.5, -1.2))

	d, err := Decompose(residuals, DecomposeParams{Components: 2})
	require.NoError(t, err)

	forecast, err := Forecast(TrendModel{FitEnd: n - 1}, d, ForecastParams{Horizon: 3})
	require.NoError(t, err)

	maxStep := 0.0
	for _, c := range d.Components {
		maxStep += c.Amplitude * 2 * math.Pi * c.Frequency
	}
	jump := math.Abs(forecast.Cycle[0] - d.Reconstruction[n-1])
	assert.LessOrEqual(t, jump, maxStep+1e-9)

	// The continuation is the same sinusoid sum evaluated past the
	// fitted domain, not a restart.
	for h := 0; h < 3; h++ {
		assert.InDelta(t, d.EvaluateAt(float64(n+h)), forecast.Cycle[h], 1e-12)
	}
}

func TestForecast_CombinedIsElementwiseSum(t *testing.T) {
	residuals := sinusoid(80, 5, 2.0, 0)
	d, err := Decompose(residuals, DecomposeParams{Components: 1})
	require.NoError(t, err)

	trend := TrendModel{Slope: 1.5, Intercept: 10, FitEnd: 79}
	forecast, err := Forecast(trend, d, ForecastParams{Horizon: 4})
	require.NoError(t, err)

	for h := range forecast.Combined {
		assert.InDelta(t, forecast.Trend[h]+forecast.Cycle[h], forecast.Combined[h], 1e-12)
	}
}
