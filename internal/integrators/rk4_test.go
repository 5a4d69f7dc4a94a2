package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/hostsim/internal/dynamo"
)

type harmonicOscillator struct{}

func (h *harmonicOscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (h *harmonicOscillator) Energy(x dynamo.State) float64 {
	return 0.5 * (x[0]*x[0] + x[1]*x[1])
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &harmonicOscillator{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerFirstOrder(t *testing.T) {
	dyn := dynamo.Func(func(t float64, x dynamo.State) dynamo.State { return dynamo.State{-x[0]} })
	integ := NewEuler()

	x := integ.Step(dyn, dynamo.State{1.0}, 0, 0.1)
	if math.Abs(x[0]-0.9) > 1e-12 {
		t.Errorf("expected 0.9, got %v", x[0])
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	initialEnergy := dyn.Energy(x0)
	x := x0.Clone()
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, float64(i)*dt, dt)
	}

	drift := math.Abs(dyn.Energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_ErrorNormShrinksWithStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}
	k1 := dyn.Derive(x0, 0)

	_, _, coarse := integrator.StepAdaptive(dyn, x0, k1, 0, 0.5, 1e-8, 1e-8)
	_, _, fine := integrator.StepAdaptive(dyn, x0, k1, 0, 0.05, 1e-8, 1e-8)

	if !(fine < coarse) {
		t.Errorf("expected smaller error for smaller step: coarse=%e fine=%e", coarse, fine)
	}
}

func TestRK45_FSALDerivative(t *testing.T) {
	integrator := NewRK45()
	dyn := &harmonicOscillator{}
	x0 := dynamo.State{1.0, 0.0}

	xNew, k7, _ := integrator.StepAdaptive(dyn, x0, dyn.Derive(x0, 0), 0, 0.1, 1e-6, 1e-6)
	want := dyn.Derive(xNew, 0.1)
	for i := range want {
		if k7[i] != want[i] {
			t.Errorf("k7[%d] = %v, want %v", i, k7[i], want[i])
		}
	}
}

func TestNextScale(t *testing.T) {
	r := NewRK45()

	tests := []struct {
		name     string
		errNorm  float64
		rejected bool
		check    func(float64) bool
	}{
		{"zero error grows max", 0, false, func(s float64) bool { return s == r.maxScale }},
		{"large error clamps min", 1e12, false, func(s float64) bool { return s == r.minScale }},
		{"nan shrinks", math.NaN(), false, func(s float64) bool { return s == r.minScale }},
		{"after rejection no growth", 1e-6, true, func(s float64) bool { return s <= 1 }},
		{"rejection shrinks", 4, false, func(s float64) bool { return s < 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if s := r.nextScale(tt.errNorm, tt.rejected); !tt.check(s) {
				t.Errorf("unexpected scale %v", s)
			}
		})
	}
}
