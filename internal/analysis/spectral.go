package analysis

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DecomposeParams configures a spectral decomposition.
type DecomposeParams struct {
	// Components is the number K of nonzero-frequency bins to keep.
	Components int
	// Label names the series frequency in outputs ("daily", "weekly").
	// It has no effect on the computation.
	Label string
}

// FrequencyComponent is one selected spectral bin.
type FrequencyComponent struct {
	// Bin is the frequency bin index, 1..N/2.
	Bin int `json:"bin"`
	// Frequency is the bin frequency in cycles per sample.
	Frequency float64 `json:"frequency"`
	// Period is the cycle length in samples (1/Frequency).
	Period float64 `json:"period"`
	// Magnitude is the raw spectrum magnitude used for ranking.
	Magnitude float64 `json:"magnitude"`
	// Amplitude is the peak amplitude of the time-domain sinusoid the
	// bin (together with its conjugate) contributes.
	Amplitude float64 `json:"amplitude"`
	// Phase is the cosine phase in radians at sample index 0.
	Phase float64 `json:"phase"`
}

// Decomposition is the result of filtering a residual series down to
// its K strongest periodic components.
type Decomposition struct {
	Label string `json:"label"`
	// N is the length of the decomposed series.
	N int `json:"n"`
	// DC is the mean carried from the zero-frequency bin. It is ~0 for
	// residuals of a least-squares fit, but it is always included in
	// the reconstruction so a nonzero mean is never lost.
	DC float64 `json:"dc"`
	// Components holds the selected bins, ranked by descending
	// magnitude (ties broken toward the lower bin).
	Components []FrequencyComponent `json:"components"`
	// Reconstruction is the inverse transform of the filtered
	// spectrum, same length as the input.
	Reconstruction []float64 `json:"reconstruction"`
}

// Decompose runs a real FFT over the residual values, selects the K
// largest-magnitude nonzero-frequency bins and reconstructs the
// filtered signal. The half-spectrum representation of a real FFT keeps
// each bin fused with its conjugate, so selecting a bin always selects
// the pair and the reconstruction stays real-valued.
//
// Selection is deterministic: bins are ranked by descending magnitude
// and equal magnitudes resolve to the lower bin index. The DC bin never
// competes for a slot; it is carried into the reconstruction directly.
func Decompose(residuals []float64, p DecomposeParams) (*Decomposition, error) {
	n := len(residuals)
	if n < 2 {
		return nil, &InsufficientDataError{Points: n, Required: 2}
	}
	maxK := n / 2
	if p.Components < 1 || p.Components > maxK {
		return nil, &InvalidComponentCountError{Count: p.Components, Max: maxK}
	}

	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, residuals)

	bins := make([]int, len(coeff)-1)
	for i := range bins {
		bins[i] = i + 1
	}
	sort.SliceStable(bins, func(a, b int) bool {
		ma, mb := cmplx.Abs(coeff[bins[a]]), cmplx.Abs(coeff[bins[b]])
		if ma != mb {
			return ma > mb
		}
		return bins[a] < bins[b]
	})
	selected := bins[:p.Components]

	filtered := make([]complex128, len(coeff))
	filtered[0] = coeff[0]
	components := make([]FrequencyComponent, len(selected))
	for i, bin := range selected {
		filtered[bin] = coeff[bin]
		c := coeff[bin]
		components[i] = FrequencyComponent{
			Bin:       bin,
			Frequency: float64(bin) / float64(n),
			Period:    float64(n) / float64(bin),
			Magnitude: cmplx.Abs(c),
			Amplitude: amplitudeScale(bin, n) * cmplx.Abs(c),
			Phase:     cmplx.Phase(c),
		}
	}

	recon := fft.Sequence(nil, filtered)
	inv := 1 / float64(n)
	for i := range recon {
		recon[i] *= inv
	}

	return &Decomposition{
		Label:          p.Label,
		N:              n,
		DC:             real(coeff[0]) * inv,
		Components:     components,
		Reconstruction: recon,
	}, nil
}

// EvaluateAt evaluates the filtered signal at a fractional sample index
// by summing the component sinusoids. For t inside the fitted domain it
// matches Reconstruction to floating-point tolerance; for t beyond it,
// it continues each sinusoid at its fitted frequency, amplitude and
// phase, which is what makes the forecast phase-continuous.
func (d *Decomposition) EvaluateAt(t float64) float64 {
	v := d.DC
	for _, c := range d.Components {
		v += c.Amplitude * math.Cos(2*math.Pi*c.Frequency*t+c.Phase)
	}
	return v
}

// amplitudeScale converts a half-spectrum magnitude to the peak
// amplitude of its time-domain sinusoid. Interior bins carry their
// conjugate's energy too; the DC and Nyquist bins have no twin.
func amplitudeScale(bin, n int) float64 {
	if bin == 0 || (n%2 == 0 && bin == n/2) {
		return 1 / float64(n)
	}
	return 2 / float64(n)
}
