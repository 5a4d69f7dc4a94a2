package withinhost

import "fmt"

// ModeKind distinguishes fixed-step from adaptive integration.
type ModeKind int

const (
	KindAdaptive ModeKind = iota
	KindFixed
)

func (k ModeKind) String() string {
	if k == KindFixed {
		return "fixed"
	}
	return "adaptive"
}

// SolverMode is either Fixed(step size) or Adaptive(tolerance); never both.
type SolverMode struct {
	kind  ModeKind
	value float64
}

// Fixed integrates with a constant step size.
func Fixed(stepSize float64) SolverMode { return SolverMode{kind: KindFixed, value: stepSize} }

// Adaptive integrates with rtol = atol = tolerance.
func Adaptive(tolerance float64) SolverMode {
	return SolverMode{kind: KindAdaptive, value: tolerance}
}

func (m SolverMode) Kind() ModeKind { return m.kind }

// Value is the step size for fixed modes and the tolerance for adaptive ones.
func (m SolverMode) Value() float64 { return m.value }

func (m SolverMode) String() string {
	if m.kind == KindFixed {
		return fmt.Sprintf("fixed(h=%g)", m.value)
	}
	return fmt.Sprintf("adaptive(tol=%g)", m.value)
}
