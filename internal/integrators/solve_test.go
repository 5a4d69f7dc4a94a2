package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/hostsim/internal/dynamo"
)

var decay = dynamo.Func(func(t float64, x dynamo.State) dynamo.State {
	return dynamo.State{-x[0]}
})

func TestSolveAdaptiveSamplesRequestedTimes(t *testing.T) {
	times := []float64{0, 0.25, 1, 1, 3.5}
	traj, err := Solve(decay, [2]float64{0, 3.5}, dynamo.State{1}, times, Options{Method: MethodRK45, RTol: 1e-10, ATol: 1e-12})
	require.NoError(t, err)

	require.Len(t, traj.States, len(times))
	assert.Equal(t, times, traj.Times)
	for i, tm := range times {
		assert.InDelta(t, math.Exp(-tm), traj.States[i][0], 1e-8, "t=%v", tm)
	}
	assert.Greater(t, traj.Stats.Steps, 0)
	assert.Greater(t, traj.Stats.Evaluations, traj.Stats.Steps)
}

func TestSolveFixedStep(t *testing.T) {
	times := []float64{0, 0.5, 1.0}
	for _, m := range []Method{MethodEuler, MethodRK4, MethodRK45} {
		t.Run(m.String(), func(t *testing.T) {
			traj, err := Solve(decay, [2]float64{0, 1}, dynamo.State{1}, times, Options{Method: m, Fixed: true, StepSize: 0.001})
			require.NoError(t, err)
			assert.InDelta(t, math.Exp(-1), traj.States[2][0], 1e-3)
			assert.Equal(t, 1.0, traj.Times[2])
		})
	}
}

func TestSolveFixedStepLandsOnOffGridTimes(t *testing.T) {
	traj, err := Solve(decay, [2]float64{0, 1}, dynamo.State{1}, []float64{0.33, 1}, Options{Method: MethodRK4, Fixed: true, StepSize: 0.1})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.33), traj.States[0][0], 1e-6)
}

func TestSolveToleranceConvergence(t *testing.T) {
	osc := &harmonicOscillator{}
	times := []float64{0, 5, 10}
	errAt := func(tol float64) float64 {
		traj, err := Solve(osc, [2]float64{0, 10}, dynamo.State{1, 0}, times, Options{Method: MethodRK45, RTol: tol, ATol: tol})
		require.NoError(t, err)
		return math.Abs(traj.States[2][0] - math.Cos(10))
	}

	coarse := errAt(1e-3)
	fine := errAt(1e-8)
	assert.Less(t, fine, coarse)
	assert.Less(t, fine, 1e-6)
}

func TestSolveInvalidArguments(t *testing.T) {
	adaptive := Options{Method: MethodRK45, RTol: 1e-6, ATol: 1e-6}

	tests := []struct {
		name  string
		span  [2]float64
		times []float64
		opts  Options
	}{
		{"empty times", [2]float64{0, 1}, nil, adaptive},
		{"unsorted times", [2]float64{0, 1}, []float64{0, 1, 0.5}, adaptive},
		{"times outside span", [2]float64{0, 1}, []float64{0, 2}, adaptive},
		{"reversed span", [2]float64{1, 0}, []float64{0.5}, adaptive},
		{"zero tolerance", [2]float64{0, 1}, []float64{1}, Options{Method: MethodRK45}},
		{"rk4 adaptive", [2]float64{0, 1}, []float64{1}, Options{Method: MethodRK4, RTol: 1e-6, ATol: 1e-6}},
		{"zero step", [2]float64{0, 1}, []float64{1}, Options{Method: MethodRK4, Fixed: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve(decay, tt.span, dynamo.State{1}, tt.times, tt.opts)
			assert.True(t, errors.Is(err, dynamo.ErrInvalidArgument), "got %v", err)
		})
	}
}

func TestSolveBlowUpIsIntegrationFailure(t *testing.T) {
	blowUp := dynamo.Func(func(t float64, x dynamo.State) dynamo.State {
		return dynamo.State{x[0] * x[0]}
	})

	_, err := Solve(blowUp, [2]float64{0, 2}, dynamo.State{1}, []float64{2}, Options{Method: MethodRK45, RTol: 1e-6, ATol: 1e-6})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dynamo.ErrIntegrationFailure))

	var simErr *dynamo.SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Greater(t, simErr.Step, 0)
}

func TestSolveMaxSteps(t *testing.T) {
	_, err := Solve(decay, [2]float64{0, 1}, dynamo.State{1}, []float64{1}, Options{Method: MethodEuler, Fixed: true, StepSize: 1e-4, MaxSteps: 10})
	assert.True(t, errors.Is(err, dynamo.ErrMaxSteps))
	assert.True(t, errors.Is(err, dynamo.ErrIntegrationFailure))
}

func TestSolveFixedStepExactlyMaxSteps(t *testing.T) {
	traj, err := Solve(decay, [2]float64{0, 1}, dynamo.State{1}, []float64{1}, Options{Method: MethodRK4, Fixed: true, StepSize: 0.5, MaxSteps: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, traj.Stats.Steps)

	_, err = Solve(decay, [2]float64{0, 1}, dynamo.State{1}, []float64{1}, Options{Method: MethodRK4, Fixed: true, StepSize: 0.5, MaxSteps: 1})
	assert.ErrorIs(t, err, dynamo.ErrMaxSteps)
}

func TestSolveNonFiniteDerivative(t *testing.T) {
	nanRHS := dynamo.Func(func(t float64, x dynamo.State) dynamo.State {
		return dynamo.State{math.NaN() * x[0]}
	})

	_, err := Solve(nanRHS, [2]float64{0, 1}, dynamo.State{1}, []float64{1}, Options{Method: MethodRK45, RTol: 1e-6, ATol: 1e-6})
	assert.ErrorIs(t, err, dynamo.ErrInvalidState)
	assert.ErrorIs(t, err, dynamo.ErrIntegrationFailure)

	_, err = Solve(nanRHS, [2]float64{0, 1}, dynamo.State{1}, []float64{1}, Options{Method: MethodRK4, Fixed: true, StepSize: 0.1})
	assert.ErrorIs(t, err, dynamo.ErrInvalidState)
}

func TestSolveRejectsNonFiniteTimes(t *testing.T) {
	opts := Options{Method: MethodRK45, RTol: 1e-6, ATol: 1e-6}
	_, err := Solve(decay, [2]float64{0, 1}, dynamo.State{1}, []float64{math.NaN(), 1}, opts)
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)
}

func TestSolveDeterministic(t *testing.T) {
	opts := Options{Method: MethodRK45, RTol: 1e-5, ATol: 1e-5}
	a, err := Solve(&harmonicOscillator{}, [2]float64{0, 7}, dynamo.State{1, 0}, []float64{1, 4, 7}, opts)
	require.NoError(t, err)
	b, err := Solve(&harmonicOscillator{}, [2]float64{0, 7}, dynamo.State{1, 0}, []float64{1, 4, 7}, opts)
	require.NoError(t, err)
	assert.Equal(t, a.States, b.States)
	assert.Equal(t, a.Stats, b.Stats)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("RK45")
	require.NoError(t, err)
	assert.Equal(t, MethodRK45, m)
	assert.True(t, m.Adaptive())

	m, err = ParseMethod(" euler ")
	require.NoError(t, err)
	assert.Equal(t, MethodEuler, m)

	_, err = ParseMethod("lsoda")
	assert.ErrorIs(t, err, dynamo.ErrInvalidArgument)
}
