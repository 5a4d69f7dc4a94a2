// Package analysis provides numerical diagnostics for the forward model.
//
//   - [Convergence]: deviation of solutions at each solver tolerance from
//     a tight-tolerance reference
//   - [IsDecreasing]: checks that deviations shrink as tolerance tightens
//
// # Tolerance studies
//
// Coarse tolerances make the log-likelihood surface jagged. Sweeping the
// tolerance shows where the simulated loads stop moving:
//
//	points, _ := analysis.Convergence(build, params, times, []float64{1e-3, 1e-6, 1e-9}, 1e-13)
//	if !analysis.IsDecreasing(points) {
//	    // loosest tolerances are not yet in the asymptotic regime
//	}
package analysis
