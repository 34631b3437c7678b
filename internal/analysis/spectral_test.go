package analysis

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinusoid(n, bin int, amplitude, phase float64) []float64 {
	out := make([]float64, n)
	for t := range out {
		out[t] = amplitude * math.Cos(2*math.Pi*float64(bin)*float64(t)/float64(n)+phase)
	}
	return out
}

func addInPlace(dst, src []float64) {
	for i := range dst {
		dst[i] += src[i]
	}
}

func TestDecompose_PureSinusoid(t *testing.T) {
	// A single tone must come back as exactly one component at its
	// bin, with the fitted amplitude matching the generating one.
	const n, bin = 128, 8
	const amplitude = 3.5
	residuals := sinusoid(n, bin, amplitude, 0.7)

	d, err := Decompose(residuals, DecomposeParams{Components: 1, Label: "daily"})
	require.NoError(t, err)

	require.Len(t, d.Components, 1)
	c := d.Components[0]
	assert.Equal(t, bin, c.Bin)
	assert.InDelta(t, float64(bin)/float64(n), c.Frequency, 1e-12)
	assert.InDelta(t, amplitude, c.Amplitude, 1e-9)
	assert.InDelta(t, 0.7, c.Phase, 1e-9)

	require.Len(t, d.Reconstruction, n)
	for i, v := range residuals {
		assert.InDelta(t, v, d.Reconstruction[i], 1e-9)
	}
}

func TestDecompose_RoundTripIdentity(t *testing.T) {
	// Selecting every available bin reproduces the input exactly.
	rng := rand.New(rand.NewSource(42))
	for _, n := range []int{64, 101} {
		residuals := make([]float64, n)
		for i := range residuals {
			residuals[i] = rng.NormFloat64() * 12
		}

		d, err := Decompose(residuals, DecomposeParams{Components: n / 2})
		require.NoError(t, err)

		require.Len(t, d.Components, n/2)
		for i, v := range residuals {
			assert.InDelta(t, v, d.Reconstruction[i], 1e-8, "n=%d index %d", n, i)
		}
	}
}

func TestDecompose_EnergyOrdering(t *testing.T) {
	// Components with known descending amplitudes must be selected in
	// that order, and no weaker bin may displace a stronger one.
	const n = 200
	residuals := sinusoid(n, 5, 9, 0)
	addInPlace(residuals, sinusoid(n, 23, 6, 1.1))
	addInPlace(residuals, sinusoid(n, 11, 3, -0.4))
	addInPlace(residuals, sinusoid(n, 47, 1, 2.0))

	d, err := Decompose(residuals, DecomposeParams{Components: 3})
	require.NoError(t, err)

	require.Len(t, d.Components, 3)
	assert.Equal(t, []int{5, 23, 11}, []int{d.Components[0].Bin, d.Components[1].Bin, d.Components[2].Bin})
	for i := 1; i < len(d.Components); i++ {
		assert.GreaterOrEqual(t, d.Components[i-1].Magnitude, d.Components[i].Magnitude)
	}
	// The weakest embedded tone stays unselected and its magnitude is
	// below every selected one.
	weakest := d.Components[len(d.Components)-1].Magnitude
	assert.Greater(t, weakest, float64(n)/2*1*0.99)
}

func TestDecompose_ZeroResiduals(t *testing.T) {
	// A perfectly linear input leaves all-zero residuals; the
	// reconstruction is flat regardless of K, and the tie over the
	// all-zero spectrum resolves to the lowest bins.
	residuals := make([]float64, 100)

	for _, k := range []int{1, 6, 50} {
		d, err := Decompose(residuals, DecomposeParams{Components: k})
		require.NoError(t, err)

		require.Len(t, d.Components, k)
		assert.Equal(t, 1, d.Components[0].Bin)
		for _, c := range d.Components {
			assert.Zero(t, c.Amplitude)
		}
		for _, v := range d.Reconstruction {
			assert.Zero(t, v)
		}
	}
}

func TestDecompose_DCBinPreserved(t *testing.T) {
	// A nonzero residual mean must survive reconstruction even though
	// the DC bin never competes for a component slot.
	const n = 96
	const mean = 2.25
	residuals := sinusoid(n, 4, 1.5, 0)
	for i := range residuals {
		residuals[i] += mean
	}

	d, err := Decompose(residuals, DecomposeParams{Components: 1})
	require.NoError(t, err)

	assert.InDelta(t, mean, d.DC, 1e-9)
	assert.Equal(t, 4, d.Components[0].Bin)
	reconMean := 0.0
	for _, v := range d.Reconstruction {
		reconMean += v
	}
	reconMean /= float64(n)
	assert.InDelta(t, mean, reconMean, 1e-9)
}

func TestDecompose_InvalidComponentCount(t *testing.T) {
	residuals := make([]float64, 100)

	for _, k := range []int{0, -3, 51} {
		_, err := Decompose(residuals, DecomposeParams{Components: k})

		var invalid *InvalidComponentCountError
		require.ErrorAs(t, err, &invalid, "k=%d", k)
		assert.Equal(t, k, invalid.Count)
		assert.Equal(t, 50, invalid.Max)
	}
}

func TestDecompose_TooShort(t *testing.T) {
	_, err := Decompose([]float64{1}, DecomposeParams{Components: 1})

	var insufficient *InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
}

func TestEvaluateAt_MatchesReconstruction(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	residuals := make([]float64, 90)
	for i := range residuals {
		residuals[i] = rng.NormFloat64() * 5
	}

	d, err := Decompose(residuals, DecomposeParams{Components: 6})
	require.NoError(t, err)

	for i := range d.Reconstruction {
		assert.InDelta(t, d.Reconstruction[i], d.EvaluateAt(float64(i)), 1e-8, "index %d", i)
	}
}
