package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/hostsim/internal/integrators"
	"github.com/san-kum/hostsim/internal/withinhost"
)

// ConvergencePoint summarises one tolerance of a sweep.
type ConvergencePoint struct {
	Tolerance float64 `json:"tolerance"`
	// MaxDeviation is the largest |log10 V - log10 V_ref| over the grid.
	MaxDeviation float64 `json:"max_deviation"`
	// RMSDeviation is the root-mean-square deviation over the grid.
	RMSDeviation float64           `json:"rms_deviation"`
	Stats        integrators.Stats `json:"stats"`
	Output       []float64         `json:"output"`
}

// Builder returns a model configured for the given tolerance.
type Builder func(tolerance float64) *withinhost.Model

// Convergence simulates params at each tolerance and compares against the
// solution at reference. Points are returned loosest tolerance first.
func Convergence(build Builder, params, times, tolerances []float64, reference float64) ([]ConvergencePoint, error) {
	ref, err := build(reference).Simulate(params, times)
	if err != nil {
		return nil, fmt.Errorf("reference tolerance %g: %w", reference, err)
	}

	sorted := append([]float64(nil), tolerances...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	points := make([]ConvergencePoint, 0, len(sorted))
	for _, tol := range sorted {
		m := build(tol)
		traj, err := m.SimulateStates(params, times)
		if err != nil {
			return points, fmt.Errorf("tolerance %g: %w", tol, err)
		}
		out, err := m.Observations(traj)
		if err != nil {
			return points, fmt.Errorf("tolerance %g: %w", tol, err)
		}

		diff := make([]float64, len(out))
		floats.SubTo(diff, out, ref)
		p := ConvergencePoint{
			Tolerance:    tol,
			MaxDeviation: floats.Norm(diff, math.Inf(1)),
			RMSDeviation: floats.Norm(diff, 2) / math.Sqrt(float64(len(diff))),
			Stats:        traj.Stats,
			Output:       out,
		}
		points = append(points, p)

		logrus.WithFields(logrus.Fields{
			"tolerance": tol,
			"max_dev":   p.MaxDeviation,
			"steps":     p.Stats.Steps,
			"rejected":  p.Stats.Rejected,
		}).Debug("convergence point")
	}

	return points, nil
}

// IsDecreasing reports whether MaxDeviation never grows as tolerance tightens.
func IsDecreasing(points []ConvergencePoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].MaxDeviation > points[i-1].MaxDeviation {
			return false
		}
	}
	return true
}
