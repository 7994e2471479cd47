package optimize

import (
	"math"
	"sort"
)

// -----------------------------------------------------------------------------
// Nelder-Mead simplex minimizer.
//
// Derivative-free, so objectives are free to be non-smooth. In particular
// they may return a large finite penalty inside infeasible regions instead
// of throwing, and the simplex degrades gracefully around the barrier.
// -----------------------------------------------------------------------------

const (
	reflectCoeff  = 1.0
	expandCoeff   = 2.0
	contractCoeff = 0.5
	shrinkCoeff   = 0.5

	// Initial simplex: relative perturbation per coordinate, with an
	// absolute fallback for zero coordinates.
	initialStep     = 0.05
	initialZeroStep = 0.00025

	// coordSpreadTolerance is the geometric collapse threshold. Vertices
	// symmetric about a minimum share one objective value while sitting far
	// from it, so a small value spread alone cannot end the search.
	coordSpreadTolerance = 1e-8
)

// -----------------------------------------------------------------------------

// Options controls the iteration budget and the convergence tolerance on the
// spread of objective values across the simplex. Convergence additionally
// requires the simplex itself to have collapsed (see coordSpreadTolerance).
type Options struct {
	MaxIterations int
	Tolerance     float64
}

// DefaultOptions returns the options used when a zero Options is supplied.
func DefaultOptions() Options {
	return Options{MaxIterations: 2000, Tolerance: 1e-10}
}

// -----------------------------------------------------------------------------

// Result is created fresh per call; the starting point is never mutated.
type Result struct {
	X          []float64
	Fx         float64
	Iterations int
	Converged  bool
}

// -----------------------------------------------------------------------------

type vertex struct {
	x  []float64
	fx float64
}

// -----------------------------------------------------------------------------

// Minimize runs the Nelder-Mead simplex from x0 and returns the best point
// found. An empty-dimension input returns immediately with the trivial
// result, and a perfectly flat objective converges in zero iterations.
func Minimize(objective func([]float64) float64, x0 []float64, opts Options) Result {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	n := len(x0)
	if n == 0 {
		return Result{X: []float64{}, Fx: objective([]float64{}), Iterations: 0, Converged: true}
	}

	// Build initial simplex of n+1 vertices.
	simplex := make([]vertex, n+1)
	base := append([]float64(nil), x0...)
	simplex[0] = vertex{x: base, fx: objective(base)}

	for i := 0; i < n; i++ {
		pt := append([]float64(nil), x0...)
		if pt[i] != 0 {
			pt[i] *= 1 + initialStep
		} else {
			pt[i] = initialZeroStep
		}
		simplex[i+1] = vertex{x: pt, fx: objective(pt)}
	}

	sort.Slice(simplex, func(a, b int) bool { return simplex[a].fx < simplex[b].fx })

	// A flat initial simplex (flat objective, or a start buried in a penalty
	// plateau) gives no descent direction at all: the spread criterion fires
	// on the first pass.
	if math.Abs(simplex[n].fx-simplex[0].fx) <= opts.Tolerance {
		return Result{
			X:          append([]float64(nil), simplex[0].x...),
			Fx:         simplex[0].fx,
			Iterations: 0,
			Converged:  true,
		}
	}

	iterations := 0
	converged := false

	for ; iterations < opts.MaxIterations; iterations++ {
		sort.Slice(simplex, func(a, b int) bool { return simplex[a].fx < simplex[b].fx })

		best, worst := simplex[0], simplex[n]
		spread := math.Abs(worst.fx - best.fx)
		if spread <= opts.Tolerance && coordSpread(simplex) <= coordSpreadTolerance {
			converged = true
			break
		}

		// Centroid of all but the worst vertex.
		centroid := make([]float64, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				centroid[j] += simplex[i].x[j]
			}
		}
		for j := 0; j < n; j++ {
			centroid[j] /= float64(n)
		}

		reflected := affine(centroid, worst.x, -reflectCoeff)
		fReflected := objective(reflected)

		switch {
		case fReflected < best.fx:
			// Try to expand further in the same direction.
			expanded := affine(centroid, worst.x, -expandCoeff)
			fExpanded := objective(expanded)
			if fExpanded < fReflected {
				simplex[n] = vertex{x: expanded, fx: fExpanded}
			} else {
				simplex[n] = vertex{x: reflected, fx: fReflected}
			}

		case fReflected < simplex[n-1].fx:
			simplex[n] = vertex{x: reflected, fx: fReflected}

		default:
			// Contract: inside if the reflected point beats the worst,
			// outside (toward worst) otherwise; shrink if neither helps.
			var contracted []float64
			if fReflected < worst.fx {
				contracted = affine(centroid, reflected, contractCoeff)
			} else {
				contracted = affine(centroid, worst.x, contractCoeff)
			}
			fContracted := objective(contracted)

			if fContracted < math.Min(fReflected, worst.fx) {
				simplex[n] = vertex{x: contracted, fx: fContracted}
			} else {
				// Shrink everything toward the best vertex.
				for i := 1; i <= n; i++ {
					for j := 0; j < n; j++ {
						simplex[i].x[j] = best.x[j] + shrinkCoeff*(simplex[i].x[j]-best.x[j])
					}
					simplex[i].fx = objective(simplex[i].x)
				}
			}
		}
	}

	sort.Slice(simplex, func(a, b int) bool { return simplex[a].fx < simplex[b].fx })

	return Result{
		X:          append([]float64(nil), simplex[0].x...),
		Fx:         simplex[0].fx,
		Iterations: iterations,
		Converged:  converged,
	}
}

// -----------------------------------------------------------------------------

// MinimizeMultiStart repeats Minimize from `restarts` deterministically
// perturbed starting points and keeps the globally best result. Used where
// the likelihood surface is known to have poor local optima (e.g. Student-t
// degrees of freedom fitted jointly with variance weights).
func MinimizeMultiStart(objective func([]float64) float64, x0 []float64, opts Options, restarts int) Result {
	best := Minimize(objective, x0, opts)
	totalIters := best.Iterations

	// Fixed perturbation pattern keeps repeated calls bit-identical.
	for r := 1; r < restarts; r++ {
		start := make([]float64, len(x0))
		for i := range x0 {
			scale := 1.0 + 0.25*float64(r)*sign(i+r)
			if x0[i] != 0 {
				start[i] = x0[i] * scale
			} else {
				start[i] = initialZeroStep * float64(r)
			}
		}

		res := Minimize(objective, start, opts)
		totalIters += res.Iterations
		if res.Fx < best.Fx {
			res.Iterations = totalIters
			best = res
		}
	}

	best.Iterations = totalIters
	return best
}

// -----------------------------------------------------------------------------

// coordSpread is the largest per-coordinate distance between the best vertex
// and any other vertex. Zero means the simplex has fully collapsed.
func coordSpread(simplex []vertex) float64 {
	best := simplex[0].x
	maxSpread := 0.0
	for _, v := range simplex[1:] {
		for j := range best {
			if d := math.Abs(v.x[j] - best[j]); d > maxSpread {
				maxSpread = d
			}
		}
	}
	return maxSpread
}

// -----------------------------------------------------------------------------

// affine returns centroid + coeff*(point - centroid).
func affine(centroid, point []float64, coeff float64) []float64 {
	out := make([]float64, len(centroid))
	for j := range centroid {
		out[j] = centroid[j] + coeff*(point[j]-centroid[j])
	}
	return out
}

func sign(k int) float64 {
	if k%2 == 0 {
		return 1
	}
	return -1
}
