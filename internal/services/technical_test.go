package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasly/option-analysis/internal/models"
)

func risingSeries(t *testing.T, n int) *models.TimeSeries {
	t.Helper()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, n)
	values := make([]float64, n)
	for i := range values {
		timestamps[i] = base.AddDate(0, 0, i)
		values[i] = 100 + float64(i)
	}

	series, err := models.NewTimeSeries(timestamps, values)
	require.NoError(t, err)
	return series
}

func TestTechnicalOverlay_Snapshot(t *testing.T) {
	overlay := NewTechnicalOverlay(20, 12, 14)

	snapshot, err := overlay.Snapshot(risingSeries(t, 60))
	require.NoError(t, err)

	require.Len(t, snapshot.Indicators, 3)
	assert.Equal(t, "SMA_20", snapshot.Indicators[0].Name)
	assert.Equal(t, "EMA_12", snapshot.Indicators[1].Name)
	assert.Equal(t, "RSI_14", snapshot.Indicators[2].Name)

	// A strictly rising series trades above its moving averages and
	// pins RSI at the top of its range.
	assert.Equal(t, "above", snapshot.Indicators[0].Signal)
	assert.Equal(t, "above", snapshot.Indicators[1].Signal)
	assert.Equal(t, "overbought", snapshot.Indicators[2].Signal)
}

func TestTechnicalOverlay_TooShort(t *testing.T) {
	overlay := NewTechnicalOverlay(20, 12, 14)

	_, err := overlay.Snapshot(risingSeries(t, 10))
	assert.ErrorContains(t, err, "at least")
}

func TestTechnicalOverlay_DefaultPeriods(t *testing.T) {
	overlay := NewTechnicalOverlay(0, -1, 0)
	assert.Equal(t, 20, overlay.smaPeriod)
	assert.Equal(t, 12, overlay.emaPeriod)
	assert.Equal(t, 14, overlay.rsiPeriod)
}

func TestRSISignal(t *testing.T) {
	assert.Equal(t, "overbought", rsiSignal(75))
	assert.Equal(t, "oversold", rsiSignal(20))
	assert.Equal(t, "neutral", rsiSignal(50))
}
