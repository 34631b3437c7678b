// Package services orchestrates analysis runs: fetching price history,
// running the numeric engine, persisting results and delivering report
// notifications on a schedule.
package services

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/thomasly/option-analysis/internal/models"
)

// OverlayIndicator is one conventional indicator reading attached to a
// report, a sanity reference next to the spectral output.
type OverlayIndicator struct {
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
	Signal string          `json:"signal"` // "above", "below", "overbought", "oversold", "neutral"
}

// OverlaySnapshot is the latest-bar view of the overlay indicators.
type OverlaySnapshot struct {
	Close      decimal.Decimal    `json:"close"`
	Indicators []OverlayIndicator `json:"indicators"`
}

// TechnicalOverlay computes a small set of conventional indicators
// (SMA, EMA, RSI) over a price series. The spectral engine does not
// consume these; they only annotate the delivered report.
type TechnicalOverlay struct {
	smaPeriod int
	emaPeriod int
	rsiPeriod int
}

// NewTechnicalOverlay creates an overlay with the given lookback
// periods. Zero or negative periods fall back to 20/12/14.
func NewTechnicalOverlay(smaPeriod, emaPeriod, rsiPeriod int) *TechnicalOverlay {
	if smaPeriod <= 0 {
		smaPeriod = 20
	}
	if emaPeriod <= 0 {
		emaPeriod = 12
	}
	if rsiPeriod <= 0 {
		rsiPeriod = 14
	}
	return &TechnicalOverlay{smaPeriod: smaPeriod, emaPeriod: emaPeriod, rsiPeriod: rsiPeriod}
}

// Snapshot computes the latest indicator readings for the series.
func (o *TechnicalOverlay) Snapshot(series *models.TimeSeries) (*OverlaySnapshot, error) {
	minLen := o.smaPeriod
	if o.rsiPeriod+1 > minLen {
		minLen = o.rsiPeriod + 1
	}
	if series.Len() < minLen {
		return nil, fmt.Errorf("overlay needs at least %d points, got %d", minLen, series.Len())
	}

	closes := series.Values()
	last := closes[len(closes)-1]

	snapshot := &OverlaySnapshot{Close: decimal.NewFromFloat(last)}

	sma := lastValue(helper.ChanToSlice(trend.NewSmaWithPeriod[float64](o.smaPeriod).Compute(helper.SliceToChan(closes))))
	snapshot.Indicators = append(snapshot.Indicators, OverlayIndicator{
		Name:   fmt.Sprintf("SMA_%d", o.smaPeriod),
		Value:  decimal.NewFromFloat(sma),
		Signal: crossSignal(last, sma),
	})

	ema := lastValue(helper.ChanToSlice(trend.NewEmaWithPeriod[float64](o.emaPeriod).Compute(helper.SliceToChan(closes))))
	snapshot.Indicators = append(snapshot.Indicators, OverlayIndicator{
		Name:   fmt.Sprintf("EMA_%d", o.emaPeriod),
		Value:  decimal.NewFromFloat(ema),
		Signal: crossSignal(last, ema),
	})

	rsi := lastValue(helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](o.rsiPeriod).Compute(helper.SliceToChan(closes))))
	snapshot.Indicators = append(snapshot.Indicators, OverlayIndicator{
		Name:   fmt.Sprintf("RSI_%d", o.rsiPeriod),
		Value:  decimal.NewFromFloat(rsi),
		Signal: rsiSignal(rsi),
	})

	return snapshot, nil
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func crossSignal(price, reference float64) string {
	switch {
	case price > reference:
		return "above"
	case price < reference:
		return "below"
	default:
		return "neutral"
	}
}

func rsiSignal(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought"
	case rsi <= 30:
		return "oversold"
	default:
		return "neutral"
	}
}
