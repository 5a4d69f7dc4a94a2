package withinhost

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/san-kum/hostsim/internal/dynamo"
	"github.com/san-kum/hostsim/internal/integrators"
	"github.com/san-kum/hostsim/internal/production"
)

const (
	// LogLimitOfQuantification is the assay floor in log10 copies.
	LogLimitOfQuantification = 0.7
	// DefaultTolerance is used when a config leaves the solver mode unset.
	DefaultTolerance = 1e-6
)

// LimitOfQuantification is the assay floor on the virus load, 10^0.7.
var LimitOfQuantification = math.Pow(10, LogLimitOfQuantification)

// State vector indices.
const (
	TargetCells = iota
	InfectedCells
	Virus
)

// Config is fixed at construction. Mode is the only field that may change
// afterwards, through SetStepSize and SetTolerance.
type Config struct {
	Y0                    [3]float64
	Method                integrators.Method
	Mode                  SolverMode
	Treatment             production.Schedule
	LimitOfQuantification bool
	// MaxSteps bounds the integrator; 0 means integrators.DefaultMaxSteps.
	MaxSteps int
}

// DefaultConfig returns the reference study setup: T0 = 4e8, I0 = 1e-6,
// V0 = 10^-3.42, RK45, step policy at t = 2.775 and the LOQ floor on.
func DefaultConfig() Config {
	return Config{
		Y0:                    [3]float64{4e8, 1e-6, math.Pow(10, -3.42)},
		Method:                integrators.MethodRK45,
		Mode:                  Adaptive(DefaultTolerance),
		Treatment:             production.DefaultSchedule(),
		LimitOfQuantification: true,
	}
}

// Model is the within-host forward model. Simulate may be called from
// multiple goroutines; setters are serialised against it.
type Model struct {
	mu  sync.RWMutex
	cfg Config
}

// New stores cfg without validating it; invalid solver settings surface
// from Simulate.
func New(cfg Config) *Model {
	return &Model{cfg: cfg}
}

// SetStepSize switches the model to fixed-step integration.
func (m *Model) SetStepSize(h float64) {
	m.mu.Lock()
	m.cfg.Mode = Fixed(h)
	m.mu.Unlock()
}

// SetTolerance switches the model to adaptive integration with
// rtol = atol = tol.
func (m *Model) SetTolerance(tol float64) {
	m.mu.Lock()
	m.cfg.Mode = Adaptive(tol)
	m.mu.Unlock()
}

// Config returns a copy of the current configuration.
func (m *Model) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Model) NParameters() int { return NumParameters }

// Derivative returns the right-hand side for the given parameters.
func Derivative(p Parameters, rate production.RateFunc) dynamo.Func {
	return func(t float64, x dynamo.State) dynamo.State {
		T, I, V := x[TargetCells], x[InfectedCells], x[Virus]
		infection := p.Beta * T * V
		return dynamo.State{
			-infection,
			infection - p.Delta*I,
			rate(t)*I - p.C*V,
		}
	}
}

// SimulateStates integrates the model over [0, max(times)] and returns the
// full T/I/V trajectory at times.
func (m *Model) SimulateStates(parameters []float64, times []float64) (*integrators.Trajectory, error) {
	p, err := ParametersFromSlice(parameters)
	if err != nil {
		return nil, err
	}
	if err := checkTimes(times); err != nil {
		return nil, err
	}

	cfg := m.Config()
	rhs := Derivative(p, cfg.Treatment.Func(p.P0, p.Epsilon))

	opts := integrators.Options{Method: cfg.Method, MaxSteps: cfg.MaxSteps}
	switch cfg.Mode.Kind() {
	case KindFixed:
		opts.Fixed = true
		opts.StepSize = cfg.Mode.Value()
	default:
		opts.RTol = cfg.Mode.Value()
		opts.ATol = cfg.Mode.Value()
	}

	y0 := dynamo.State{cfg.Y0[0], cfg.Y0[1], cfg.Y0[2]}
	span := [2]float64{0, times[len(times)-1]}

	traj, err := integrators.Solve(rhs, span, y0, times, opts)
	if err != nil {
		return nil, fmt.Errorf("simulate %s %s: %w", cfg.Method, cfg.Mode, err)
	}
	return traj, nil
}

// Simulate returns log10 of the virus load at each time. With the limit of
// quantification on, loads below 10^0.7 are raised to it before the log.
func (m *Model) Simulate(parameters []float64, times []float64) ([]float64, error) {
	traj, err := m.SimulateStates(parameters, times)
	if err != nil {
		return nil, err
	}
	return m.Observations(traj)
}

// Observations post-processes a trajectory from SimulateStates into the
// values returned by Simulate.
func (m *Model) Observations(traj *integrators.Trajectory) ([]float64, error) {
	loq := m.Config().LimitOfQuantification
	out := traj.Component(Virus)
	for i, v := range out {
		if loq && v < LimitOfQuantification {
			out[i] = LogLimitOfQuantification
			continue
		}
		if !(v > 0) {
			return nil, &dynamo.SimulationError{
				Step:    traj.Stats.Steps,
				Time:    traj.Times[i],
				State:   traj.States[i],
				Wrapped: fmt.Errorf("non-positive virus load %g has no log10", v),
			}
		}
		out[i] = math.Log10(v)
	}
	return out, nil
}

func checkTimes(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("%w: empty time grid", dynamo.ErrInvalidArgument)
	}
	for _, v := range times {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite time %g", dynamo.ErrInvalidArgument, v)
		}
	}
	if times[0] < 0 {
		return fmt.Errorf("%w: negative time %g", dynamo.ErrInvalidArgument, times[0])
	}
	if !sort.Float64sAreSorted(times) {
		return fmt.Errorf("%w: time grid must be sorted ascending", dynamo.ErrInvalidArgument)
	}
	return nil
}
