package core

import (
	"errors"
	"math"
)

// ErrSingularMatrix is returned when Gaussian elimination meets a pivot too
// small to divide by, e.g. identical lag windows in a regression design.
var ErrSingularMatrix = errors.New("singular matrix")

const pivotEpsilon = 1e-12

// -----------------------------------------------------------------------------

// SolveLinearSystem solves A*x = b by Gaussian elimination with partial
// pivoting. A and b are not mutated.
func SolveLinearSystem(A [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	if n == 0 || len(A) != n {
		return nil, ErrSingularMatrix
	}

	// Augmented working copy
	aug := make([][]float64, n)
	for i := 0; i < n; i++ {
		aug[i] = make([]float64, n+1)
		copy(aug[i], A[i])
		aug[i][n] = b[i]
	}

	for k := 0; k < n-1; k++ {
		// Find pivot
		maxRow := k
		for i := k + 1; i < n; i++ {
			if math.Abs(aug[i][k]) > math.Abs(aug[maxRow][k]) {
				maxRow = i
			}
		}
		if maxRow != k {
			aug[k], aug[maxRow] = aug[maxRow], aug[k]
		}

		if math.Abs(aug[k][k]) < pivotEpsilon {
			return nil, ErrSingularMatrix
		}

		// Eliminate column
		for i := k + 1; i < n; i++ {
			factor := aug[i][k] / aug[k][k]
			for j := k; j <= n; j++ {
				aug[i][j] -= factor * aug[k][j]
			}
		}
	}

	// Back substitution
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		if math.Abs(aug[i][i]) < pivotEpsilon {
			return nil, ErrSingularMatrix
		}
		x[i] = aug[i][n]
		for j := i + 1; j < n; j++ {
			x[i] -= aug[i][j] * x[j]
		}
		x[i] /= aug[i][i]
	}

	return x, nil
}

// -----------------------------------------------------------------------------

// SolveNormalEquations computes the ordinary least squares solution of
// X*beta = y via (X'X)beta = X'y.
func SolveNormalEquations(X [][]float64, y []float64) ([]float64, error) {
	if len(X) == 0 || len(X[0]) == 0 || len(X) != len(y) {
		return nil, ErrSingularMatrix
	}

	rows := len(X)
	cols := len(X[0])

	XtX := make([][]float64, cols)
	for i := 0; i < cols; i++ {
		XtX[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			sum := 0.0
			for k := 0; k < rows; k++ {
				sum += X[k][i] * X[k][j]
			}
			XtX[i][j] = sum
		}
	}

	Xty := make([]float64, cols)
	for i := 0; i < cols; i++ {
		sum := 0.0
		for k := 0; k < rows; k++ {
			sum += X[k][i] * y[k]
		}
		Xty[i] = sum
	}

	return SolveLinearSystem(XtX, Xty)
}
