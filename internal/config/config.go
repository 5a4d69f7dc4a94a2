package config

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/hostsim/internal/integrators"
	"github.com/san-kum/hostsim/internal/production"
	"github.com/san-kum/hostsim/internal/withinhost"
)

const (
	DefaultTimeStop    = 7.0
	DefaultTimeCount   = 8
	DefaultNoise       = 0.1
	DefaultSeed        = 123
	DefaultTolerance   = 1e-13
	DefaultSliceWidth  = 0.5
	DefaultSlicePoints = 100
)

type Scenario struct {
	Name                  string                `yaml:"name"`
	InitState             InitStateConfig       `yaml:"init_state"`
	Params                withinhost.Parameters `yaml:"params"`
	Noise                 float64               `yaml:"noise"`
	Seed                  uint64                `yaml:"seed"`
	Solver                SolverConfig          `yaml:"solver"`
	Treatment             TreatmentConfig       `yaml:"treatment"`
	LimitOfQuantification bool                  `yaml:"limit_of_quantification"`
	Times                 TimeGridConfig        `yaml:"times"`
	Slice                 SliceConfig           `yaml:"slice"`
}

// InitStateConfig holds T0, I0 and V0.
type InitStateConfig struct {
	T0 float64 `yaml:"t0"`
	I0 float64 `yaml:"i0"`
	V0 float64 `yaml:"v0"`
}

// SolverConfig sets either Tolerance (adaptive) or StepSize (fixed).
// StepSize wins when both are set.
type SolverConfig struct {
	Method    integrators.Method `yaml:"method"`
	Tolerance float64            `yaml:"tolerance,omitempty"`
	StepSize  float64            `yaml:"step_size,omitempty"`
}

type TreatmentConfig struct {
	Policy production.Policy `yaml:"policy"`
	TTreat float64           `yaml:"t_treat"`
	TMax   float64           `yaml:"t_max"`
}

// TimeGridConfig describes Count evenly spaced times over [Start, Stop].
type TimeGridConfig struct {
	Start float64 `yaml:"start"`
	Stop  float64 `yaml:"stop"`
	Count int     `yaml:"count"`
}

// SliceConfig describes a log-likelihood scan of Param over its true
// value +/- Width.
type SliceConfig struct {
	Param  string  `yaml:"param"`
	Width  float64 `yaml:"width"`
	Points int     `yaml:"points"`
}

// DefaultScenario is the reference within-host study.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name: "default",
		InitState: InitStateConfig{
			T0: 4e8,
			I0: 1e-6,
			V0: math.Pow(10, -3.42),
		},
		Params: withinhost.Parameters{
			Beta:    1.81e-6,
			Delta:   7.07,
			P0:      0.661,
			C:       14.8,
			Epsilon: 0.9738,
		},
		Noise: DefaultNoise,
		Seed:  DefaultSeed,
		Solver: SolverConfig{
			Method:    integrators.MethodRK45,
			Tolerance: DefaultTolerance,
		},
		Treatment: TreatmentConfig{
			Policy: production.PolicyStep,
			TTreat: production.DefaultTreatmentTime,
			TMax:   production.DefaultTMax,
		},
		LimitOfQuantification: true,
		Times: TimeGridConfig{
			Start: 0,
			Stop:  DefaultTimeStop,
			Count: DefaultTimeCount,
		},
		Slice: SliceConfig{
			Param:  "delta",
			Width:  DefaultSliceWidth,
			Points: DefaultSlicePoints,
		},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := DefaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func Save(path string, sc *Scenario) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Scenario) Validate() error {
	if s.Solver.StepSize < 0 {
		return fmt.Errorf("step_size must be positive, got %g", s.Solver.StepSize)
	}
	if s.Solver.StepSize == 0 && !(s.Solver.Tolerance > 0) {
		return fmt.Errorf("solver needs a positive tolerance or step_size")
	}
	if s.Solver.StepSize == 0 && !s.Solver.Method.Adaptive() {
		return fmt.Errorf("%s needs a step_size", s.Solver.Method)
	}
	if s.Times.Count < 1 {
		return fmt.Errorf("times.count must be at least 1, got %d", s.Times.Count)
	}
	if s.Times.Start < 0 || s.Times.Stop < s.Times.Start {
		return fmt.Errorf("invalid time range [%g, %g]", s.Times.Start, s.Times.Stop)
	}
	if s.Noise < 0 {
		return fmt.Errorf("noise must be non-negative, got %g", s.Noise)
	}
	if _, err := withinhost.ParameterIndex(s.Slice.Param); err != nil {
		return fmt.Errorf("slice: %w", err)
	}
	return nil
}

// Mode returns the solver mode implied by the solver section.
func (s *Scenario) Mode() withinhost.SolverMode {
	if s.Solver.StepSize > 0 {
		return withinhost.Fixed(s.Solver.StepSize)
	}
	return withinhost.Adaptive(s.Solver.Tolerance)
}

func (s *Scenario) ModelConfig() withinhost.Config {
	return withinhost.Config{
		Y0:     [3]float64{s.InitState.T0, s.InitState.I0, s.InitState.V0},
		Method: s.Solver.Method,
		Mode:   s.Mode(),
		Treatment: production.Schedule{
			Policy: s.Treatment.Policy,
			TTreat: s.Treatment.TTreat,
			TMax:   s.Treatment.TMax,
		},
		LimitOfQuantification: s.LimitOfQuantification,
	}
}

// TimeGrid returns Count evenly spaced times from Start to Stop inclusive.
func (s *Scenario) TimeGrid() []float64 {
	return Linspace(s.Times.Start, s.Times.Stop, s.Times.Count)
}

// Linspace returns n evenly spaced values over [lo, hi].
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// SliceValues returns the scan grid around the true value of Slice.Param.
func (s *Scenario) SliceValues() ([]float64, int, error) {
	idx, err := withinhost.ParameterIndex(s.Slice.Param)
	if err != nil {
		return nil, 0, err
	}
	center := s.Params.Slice()[idx]
	return Linspace(center-s.Slice.Width, center+s.Slice.Width, s.Slice.Points), idx, nil
}
