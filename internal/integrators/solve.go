package integrators

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/hostsim/internal/dynamo"
)

const DefaultMaxSteps = 1_000_000

// Options configures Solve. Adaptive methods read RTol/ATol, fixed-step
// integration reads StepSize.
type Options struct {
	Method   Method
	Fixed    bool
	StepSize float64
	RTol     float64
	ATol     float64
	// FirstStep overrides the initial step estimate when > 0.
	FirstStep float64
	// MaxSteps bounds accepted plus rejected steps; 0 means DefaultMaxSteps.
	MaxSteps int
}

// Stats counts the work done by Solve.
type Stats struct {
	Steps       int
	Rejected    int
	Evaluations int
}

// Trajectory holds states sampled at the requested times.
type Trajectory struct {
	Times  []float64
	States []dynamo.State
	Stats  Stats
}

// Component extracts state variable i across all samples.
func (tr *Trajectory) Component(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, s := range tr.States {
		out[k] = s[i]
	}
	return out
}

type countingSystem struct {
	dyn   dynamo.System
	count int
}

func (c *countingSystem) Derive(x dynamo.State, t float64) dynamo.State {
	c.count++
	return c.dyn.Derive(x, t)
}

// Solve integrates dyn from span[0] to span[1] starting at y0 and returns
// the solution at every evalTimes entry. Steps are shortened so that each
// requested time is hit exactly.
func Solve(dyn dynamo.System, span [2]float64, y0 dynamo.State, evalTimes []float64, opts Options) (*Trajectory, error) {
	if err := validate(span, evalTimes, opts); err != nil {
		return nil, err
	}

	sys := &countingSystem{dyn: dyn}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var (
		traj *Trajectory
		err  error
	)
	if opts.Fixed {
		traj, err = solveFixed(sys, span[0], y0, evalTimes, opts, maxSteps)
	} else {
		traj, err = solveAdaptive(sys, span, y0, evalTimes, opts, maxSteps)
	}
	if traj != nil {
		traj.Stats.Evaluations = sys.count
	}
	return traj, err
}

func validate(span [2]float64, evalTimes []float64, opts Options) error {
	if !(span[1] >= span[0]) {
		return fmt.Errorf("%w: span end %g before start %g", dynamo.ErrInvalidArgument, span[1], span[0])
	}
	if len(evalTimes) == 0 {
		return fmt.Errorf("%w: no evaluation times", dynamo.ErrInvalidArgument)
	}
	for _, v := range evalTimes {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite evaluation time %g", dynamo.ErrInvalidArgument, v)
		}
	}
	if !sort.Float64sAreSorted(evalTimes) {
		return fmt.Errorf("%w: evaluation times must be sorted ascending", dynamo.ErrInvalidArgument)
	}
	if evalTimes[0] < span[0] || evalTimes[len(evalTimes)-1] > span[1] {
		return fmt.Errorf("%w: evaluation times outside [%g, %g]", dynamo.ErrInvalidArgument, span[0], span[1])
	}
	if opts.Fixed {
		if !(opts.StepSize > 0) {
			return fmt.Errorf("%w: step size must be positive, got %g", dynamo.ErrInvalidArgument, opts.StepSize)
		}
		return nil
	}
	if !opts.Method.Adaptive() {
		return fmt.Errorf("%w: %s does not support adaptive stepping", dynamo.ErrInvalidArgument, opts.Method)
	}
	if !(opts.RTol > 0) || !(opts.ATol > 0) {
		return fmt.Errorf("%w: tolerance must be positive for adaptive stepping", dynamo.ErrInvalidArgument)
	}
	return nil
}

func solveFixed(sys dynamo.System, t0 float64, y0 dynamo.State, evalTimes []float64, opts Options, maxSteps int) (*Trajectory, error) {
	stepper := newStepper(opts.Method)
	traj := &Trajectory{
		Times:  make([]float64, 0, len(evalTimes)),
		States: make([]dynamo.State, 0, len(evalTimes)),
	}

	x := y0.Clone()
	t := t0
	h := opts.StepSize

	for _, target := range evalTimes {
		for t < target {
			dt := h
			landing := target-t <= h
			if landing {
				dt = target - t
			}

			if traj.Stats.Steps >= maxSteps {
				return traj, &dynamo.SimulationError{Step: traj.Stats.Steps, Time: t, State: x, Wrapped: dynamo.ErrMaxSteps}
			}
			newX := stepper.Step(sys, x, t, dt)
			traj.Stats.Steps++
			if !newX.IsValid() {
				return traj, &dynamo.SimulationError{Step: traj.Stats.Steps, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
			}

			x = newX
			if landing {
				t = target
			} else {
				t += dt
			}
		}
		traj.Times = append(traj.Times, target)
		traj.States = append(traj.States, x.Clone())
	}

	return traj, nil
}

func solveAdaptive(sys dynamo.System, span [2]float64, y0 dynamo.State, evalTimes []float64, opts Options, maxSteps int) (*Trajectory, error) {
	rk := NewRK45()
	traj := &Trajectory{
		Times:  make([]float64, 0, len(evalTimes)),
		States: make([]dynamo.State, 0, len(evalTimes)),
	}

	x := y0.Clone()
	t := span[0]
	k1 := sys.Derive(x, t)
	if !x.IsValid() || !k1.IsValid() {
		return traj, &dynamo.SimulationError{Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
	}

	h := opts.FirstStep
	if h <= 0 {
		h = initialStep(sys, t, x, k1, span[1]-span[0], opts.RTol, opts.ATol)
	}
	if math.IsNaN(h) {
		return traj, &dynamo.SimulationError{Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
	}

	attempts := 0
	for _, target := range evalTimes {
		for t < target {
			rejected := false
			for {
				minStep := 10 * math.Abs(math.Nextafter(t, math.Inf(1))-t)
				if !(h >= minStep) {
					return traj, &dynamo.SimulationError{Step: traj.Stats.Steps, Time: t, State: x, Wrapped: dynamo.ErrStepTooSmall}
				}
				attempts++
				if attempts > maxSteps {
					return traj, &dynamo.SimulationError{Step: traj.Stats.Steps, Time: t, State: x, Wrapped: dynamo.ErrMaxSteps}
				}

				dt := h
				landing := target-t <= h
				if landing {
					dt = target - t
				}

				newX, k7, errNorm := rk.StepAdaptive(sys, x, k1, t, dt, opts.RTol, opts.ATol)
				if !newX.IsValid() {
					errNorm = math.Inf(1)
				}

				scale := rk.nextScale(errNorm, rejected)
				if errNorm <= 1 {
					traj.Stats.Steps++
					x, k1 = newX, k7
					switch {
					case landing && dt < h:
						// clipped to hit target; keep h unless the short step was marginal
						t = target
						if scale < 1 {
							h = math.Min(h, dt*scale)
						}
					case landing:
						t = target
						h = dt * scale
					default:
						t += dt
						h = dt * scale
					}
					break
				}

				traj.Stats.Rejected++
				rejected = true
				h = dt * scale
			}
		}
		traj.Times = append(traj.Times, target)
		traj.States = append(traj.States, x.Clone())
	}

	return traj, nil
}
