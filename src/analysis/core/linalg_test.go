package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestSolveLinearSystem(t *testing.T) {
	A := [][]float64{
		{2, 1, -1},
		{-3, -1, 2},
		{-2, 1, 2},
	}
	b := []float64{8, -11, -3}

	x, err := SolveLinearSystem(A, b)
	require.NoError(t, err)

	assert.InDelta(t, 2, x[0], 1e-10)
	assert.InDelta(t, 3, x[1], 1e-10)
	assert.InDelta(t, -1, x[2], 1e-10)
}

func TestSolveLinearSystemDoesNotMutateInputs(t *testing.T) {
	A := [][]float64{{4, 1}, {1, 3}}
	b := []float64{1, 2}

	_, err := SolveLinearSystem(A, b)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{4, 1}, {1, 3}}, A)
	assert.Equal(t, []float64{1, 2}, b)
}

func TestSolveLinearSystemSingular(t *testing.T) {
	A := [][]float64{
		{1, 2},
		{2, 4}, // linearly dependent
	}
	_, err := SolveLinearSystem(A, []float64{3, 6})
	assert.ErrorIs(t, err, ErrSingularMatrix)

	_, err = SolveLinearSystem(nil, nil)
	assert.ErrorIs(t, err, ErrSingularMatrix)
}

// -----------------------------------------------------------------------------

func TestSolveNormalEquationsRecoversLine(t *testing.T) {
	// y = 2 + 3x, exactly.
	X := [][]float64{{1, 0}, {1, 1}, {1, 2}, {1, 3}, {1, 4}}
	y := []float64{2, 5, 8, 11, 14}

	beta, err := SolveNormalEquations(X, y)
	require.NoError(t, err)

	assert.InDelta(t, 2, beta[0], 1e-9)
	assert.InDelta(t, 3, beta[1], 1e-9)
}

func TestSolveNormalEquationsSingularDesign(t *testing.T) {
	// Constant regressor duplicates the intercept column.
	X := [][]float64{{1, 5}, {1, 5}, {1, 5}, {1, 5}}
	y := []float64{1, 2, 3, 4}

	_, err := SolveNormalEquations(X, y)
	assert.ErrorIs(t, err, ErrSingularMatrix)
}
