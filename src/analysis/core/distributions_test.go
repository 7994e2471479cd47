package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestNormalQuantileKnownValues(t *testing.T) {
	cases := []struct {
		p    float64
		want float64
	}{
		{0.5, 0},
		{0.8413447460685429, 1},      // Phi(1)
		{0.9750021048517795, 1.96},   // ~97.5%
		{0.9986501019683699, 3},      // Phi(3)
		{1 - 0.8413447460685429, -1}, // symmetry
		{0.01, -2.3263478740408408},  // tail branch
	}

	for _, c := range cases {
		got, err := NormalQuantile(c.p)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-6, "p=%v", c.p)
	}
}

func TestNormalQuantileSymmetry(t *testing.T) {
	for _, p := range []float64{0.001, 0.05, 0.3, 0.45} {
		lo, err := NormalQuantile(p)
		require.NoError(t, err)
		hi, err := NormalQuantile(1 - p)
		require.NoError(t, err)
		assert.InDelta(t, -lo, hi, 1e-9)
	}
}

func TestNormalQuantileRejectsBoundary(t *testing.T) {
	for _, p := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		_, err := NormalQuantile(p)
		assert.Error(t, err, "p=%v", p)
	}
}

// -----------------------------------------------------------------------------

func TestChiSquareSurvival(t *testing.T) {
	t.Run("known_values", func(t *testing.T) {
		// Chi-square with 1 df: P(X > 3.841) ~= 0.05.
		assert.InDelta(t, 0.05, ChiSquareSurvival(3.841458820694124, 1), 1e-6)

		// 2 df has the closed form exp(-x/2).
		assert.InDelta(t, math.Exp(-2.5), ChiSquareSurvival(5, 2), 1e-9)

		// 10 df: P(X > 18.307) ~= 0.05.
		assert.InDelta(t, 0.05, ChiSquareSurvival(18.307038053275146, 10), 1e-6)
	})

	t.Run("degenerate_inputs", func(t *testing.T) {
		assert.Equal(t, 1.0, ChiSquareSurvival(0, 5))
		assert.Equal(t, 1.0, ChiSquareSurvival(-3, 5))
		assert.Equal(t, 1.0, ChiSquareSurvival(4, 0))
	})

	t.Run("monotone_in_x", func(t *testing.T) {
		prev := 1.0
		for x := 0.5; x < 40; x += 0.5 {
			s := ChiSquareSurvival(x, 10)
			assert.LessOrEqual(t, s, prev)
			prev = s
		}
	})
}
