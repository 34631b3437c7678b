package analysis

import "math"

// ScalingMode selects the input range the normalizer maps from.
type ScalingMode string

const (
	// ScaleAbsolute maps from the full coefficient range [-1, 1].
	ScaleAbsolute ScalingMode = "absolute"
	// ScaleRelative maps from the observed min/max of the grid's
	// non-degenerate cells.
	ScaleRelative ScalingMode = "relative"
)

// NormalizeParams configures the intensity mapping.
type NormalizeParams struct {
	Mode ScalingMode
	// Invert flips the direction: higher correlation maps to lower
	// intensity.
	Invert bool
	// IntensityPower, when positive, applies the renderer's
	// exponential alpha curve 0.1 * 10^(v^power) after the linear
	// rescale, clamped to [0, 1]. Zero leaves the rescale linear.
	IntensityPower float64
}

// NormalizedCell mirrors a CorrelationCell with its coefficient mapped
// to a bounded display intensity. Degenerate cells keep their flag so
// the renderer can skip or grey them out.
type NormalizedCell struct {
	Center     float64 `json:"center"`
	Gamma      float64 `json:"gamma"`
	Intensity  float64 `json:"intensity"`
	Degenerate bool    `json:"degenerate,omitempty"`
}

// NormalizedGrid has the same keys and dimensions as the grid it was
// derived from, with intensities in [0, 1].
type NormalizedGrid struct {
	Offset  int              `json:"offset"`
	Centers []float64        `json:"centers"`
	Gammas  []float64        `json:"gammas"`
	Cells   []NormalizedCell `json:"cells"`
}

// Normalize maps every coefficient of the grid to a [0, 1] intensity.
// The mapping is monotone in the configured direction and pure: the
// input grid is not touched. Degenerate cells map to intensity 0.
func Normalize(g CorrelationGrid, p NormalizeParams) NormalizedGrid {
	lo, hi := -1.0, 1.0
	if p.Mode == ScaleRelative {
		lo, hi = observedRange(g.Cells)
	}

	out := NormalizedGrid{
		Offset:  g.Offset,
		Centers: g.Centers,
		Gammas:  g.Gammas,
		Cells:   make([]NormalizedCell, len(g.Cells)),
	}
	for i, c := range g.Cells {
		nc := NormalizedCell{Center: c.Center, Gamma: c.Gamma, Degenerate: c.Degenerate}
		if !c.Degenerate {
			v := 0.5
			if hi > lo {
				v = (c.Coefficient - lo) / (hi - lo)
			}
			if p.Invert {
				v = 1 - v
			}
			if p.IntensityPower > 0 {
				v = clamp(0.1*math.Pow(10, math.Pow(v, p.IntensityPower)), 0, 1)
			}
			nc.Intensity = v
		}
		out.Cells[i] = nc
	}
	return out
}

func observedRange(cells []CorrelationCell) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, c := range cells {
		if c.Degenerate {
			continue
		}
		lo = math.Min(lo, c.Coefficient)
		hi = math.Max(hi, c.Coefficient)
	}
	if lo > hi {
		// All cells degenerate; fall back to the absolute range.
		return -1, 1
	}
	return lo, hi
}
