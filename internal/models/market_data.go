package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency identifies the bar interval of a price series.
type Frequency string

const (
	FrequencyDaily  Frequency = "D"
	FrequencyWeekly Frequency = "W"
)

// Label returns the human-readable name used in report titles.
func (f Frequency) Label() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	default:
		return string(f)
	}
}

// Valid reports whether the frequency is one the quote service supports.
func (f Frequency) Valid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

// Candle is a single bar as delivered by the quote service. Prices stay
// decimal until the analysis boundary, where closes are converted to
// float64 for the numeric engine.
type Candle struct {
	Symbol    string          `json:"symbol"`
	TradeDate time.Time       `json:"trade_date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// CandlesToSeries extracts the close prices of chronologically ordered
// candles into a validated TimeSeries.
func CandlesToSeries(candles []Candle) (*TimeSeries, error) {
	timestamps := make([]time.Time, len(candles))
	values := make([]float64, len(candles))
	for i, c := range candles {
		timestamps[i] = c.TradeDate
		values[i] = c.Close.InexactFloat64()
	}
	return NewTimeSeries(timestamps, values)
}
