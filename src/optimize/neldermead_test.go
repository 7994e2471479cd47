package optimize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return sum
}

func rosenbrock(x []float64) float64 {
	a := 1 - x[0]
	b := x[1] - x[0]*x[0]
	return a*a + 100*b*b
}

// -----------------------------------------------------------------------------

func TestMinimizeQuadratic(t *testing.T) {
	res := Minimize(sphere, []float64{3, -2, 1}, Options{})

	require.True(t, res.Converged)
	assert.InDelta(t, 0, res.Fx, 1e-8)
	for i, v := range res.X {
		assert.InDelta(t, 0, v, 1e-4, "coordinate %d", i)
	}
}

// -----------------------------------------------------------------------------

func TestMinimizeShiftedMinimum(t *testing.T) {
	objective := func(x []float64) float64 {
		return (x[0]-2.5)*(x[0]-2.5) + (x[1]+1.5)*(x[1]+1.5)
	}

	res := Minimize(objective, []float64{0.1, 0.1}, Options{})

	require.True(t, res.Converged)
	assert.InDelta(t, 2.5, res.X[0], 1e-4)
	assert.InDelta(t, -1.5, res.X[1], 1e-4)
}

// -----------------------------------------------------------------------------

func TestMinimizeRosenbrock(t *testing.T) {
	res := Minimize(rosenbrock, []float64{-1.2, 1}, Options{MaxIterations: 5000})

	assert.InDelta(t, 1, res.X[0], 1e-3)
	assert.InDelta(t, 1, res.X[1], 1e-3)
}

// -----------------------------------------------------------------------------

func TestMinimizeEmptyDimensions(t *testing.T) {
	calls := 0
	objective := func(x []float64) float64 {
		calls++
		return 42
	}

	res := Minimize(objective, []float64{}, Options{})

	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 42.0, res.Fx)
	assert.Empty(t, res.X)
	assert.Equal(t, 1, calls)
}

// -----------------------------------------------------------------------------

func TestMinimizeFlatObjective(t *testing.T) {
	res := Minimize(func([]float64) float64 { return 7 }, []float64{1, 2}, Options{})

	// All vertices share the same value, so the spread criterion fires on the
	// first pass.
	assert.True(t, res.Converged)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, 7.0, res.Fx)
}

// -----------------------------------------------------------------------------

func TestMinimizeDoesNotMutateStart(t *testing.T) {
	x0 := []float64{1, 2, 3}
	Minimize(sphere, x0, Options{})

	assert.Equal(t, []float64{1, 2, 3}, x0)
}

// -----------------------------------------------------------------------------

func TestMinimizeBarrierObjective(t *testing.T) {
	// Infeasible half-plane handled by a large finite penalty.
	objective := func(x []float64) float64 {
		if x[0] < 0 {
			return 1e10
		}
		return (x[0] - 1) * (x[0] - 1)
	}

	res := Minimize(objective, []float64{0.5}, Options{})

	require.True(t, res.Converged)
	assert.InDelta(t, 1, res.X[0], 1e-4)
	assert.GreaterOrEqual(t, res.X[0], 0.0)
}

// -----------------------------------------------------------------------------

func TestMinimizeEqualValueVerticesKeepSearching(t *testing.T) {
	// Vertices symmetric about the minimum share one objective value. The
	// search must keep collapsing the simplex instead of stopping on the
	// value spread alone, far from the optimum.
	objective := func(x []float64) float64 {
		v := x[0] - 1
		return v * v
	}

	res := Minimize(objective, []float64{0.5}, Options{})

	require.True(t, res.Converged)
	assert.InDelta(t, 1, res.X[0], 1e-4)
	assert.InDelta(t, 0, res.Fx, 1e-8)
}

// -----------------------------------------------------------------------------

func TestMinimizeMultiStartDeterministic(t *testing.T) {
	first := MinimizeMultiStart(rosenbrock, []float64{-1.2, 1}, Options{}, 4)
	second := MinimizeMultiStart(rosenbrock, []float64{-1.2, 1}, Options{}, 4)

	// No RNG anywhere: repeated calls are bit-identical.
	assert.Equal(t, first.X, second.X)
	assert.Equal(t, first.Fx, second.Fx)
	assert.Equal(t, first.Iterations, second.Iterations)
}

// -----------------------------------------------------------------------------

func TestMinimizeMultiStartAccumulatesIterations(t *testing.T) {
	single := Minimize(sphere, []float64{2, 2}, Options{})
	multi := MinimizeMultiStart(sphere, []float64{2, 2}, Options{}, 3)

	assert.GreaterOrEqual(t, multi.Iterations, single.Iterations)
	assert.InDelta(t, 0, multi.Fx, 1e-8)
}

// -----------------------------------------------------------------------------

func TestMinimizeMultiStartNeverWorseThanSingle(t *testing.T) {
	// Tilted double well: minima near -1 and +1, the negative one deeper.
	objective := func(x []float64) float64 {
		v := x[0]
		return (v*v-1)*(v*v-1) + 0.2*v
	}

	single := Minimize(objective, []float64{0.9}, Options{})
	multi := MinimizeMultiStart(objective, []float64{0.9}, Options{}, 5)

	assert.False(t, math.IsNaN(multi.Fx))
	assert.LessOrEqual(t, multi.Fx, single.Fx)
}
