package models

import (
	"fmt"
	"math"
	"time"
)

// TimeSeries is an ordered sequence of (timestamp, value) observations.
// Timestamps are strictly increasing and values are finite; both are
// enforced at construction. A TimeSeries is never mutated after it has
// been built, so it can be shared freely between analysis stages.
type TimeSeries struct {
	timestamps []time.Time
	values     []float64
}

// NewTimeSeries validates and builds a TimeSeries. The input slices are
// copied so later mutation by the caller cannot leak into the series.
func NewTimeSeries(timestamps []time.Time, values []float64) (*TimeSeries, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("timestamps and values length mismatch: %d != %d", len(timestamps), len(values))
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("time series must contain at least one observation")
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non-finite value %v at index %d", v, i)
		}
		if i > 0 && !timestamps[i].After(timestamps[i-1]) {
			return nil, fmt.Errorf("timestamps not strictly increasing at index %d (%s <= %s)",
				i, timestamps[i].Format(time.RFC3339), timestamps[i-1].Format(time.RFC3339))
		}
	}

	ts := &TimeSeries{
		timestamps: make([]time.Time, len(timestamps)),
		values:     make([]float64, len(values)),
	}
	copy(ts.timestamps, timestamps)
	copy(ts.values, values)
	return ts, nil
}

// Len returns the number of observations.
func (s *TimeSeries) Len() int {
	return len(s.values)
}

// Timestamp returns the timestamp at index i.
func (s *TimeSeries) Timestamp(i int) time.Time {
	return s.timestamps[i]
}

// Value returns the value at index i.
func (s *TimeSeries) Value(i int) float64 {
	return s.values[i]
}

// Values returns a copy of the value sequence.
func (s *TimeSeries) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Timestamps returns a copy of the timestamp sequence.
func (s *TimeSeries) Timestamps() []time.Time {
	out := make([]time.Time, len(s.timestamps))
	copy(out, s.timestamps)
	return out
}

// Start returns the first timestamp.
func (s *TimeSeries) Start() time.Time {
	return s.timestamps[0]
}

// End returns the last timestamp.
func (s *TimeSeries) End() time.Time {
	return s.timestamps[len(s.timestamps)-1]
}

// WithValues builds a new series sharing this series' timestamps but
// carrying the given values. Used for derived series such as residuals,
// which keep the source timeline by definition.
func (s *TimeSeries) WithValues(values []float64) (*TimeSeries, error) {
	return NewTimeSeries(s.timestamps, values)
}
