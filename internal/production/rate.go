package production

import (
	"fmt"
	"math"
	"strings"
)

// DefaultTMax is the time to peak plasma oseltamivir concentration, in days.
const DefaultTMax = 1.08 / 24

// DefaultTreatmentTime is the treatment time used in the reference study, in days.
const DefaultTreatmentTime = 2.775

// Step returns p0 before tTreat and p0*(1-epsilon) from tTreat on.
func Step(t, tTreat, p0, epsilon float64) float64 {
	if t < tTreat {
		return p0
	}
	return p0 * (1.0 - epsilon)
}

// Tanh returns a production rate falling smoothly from p0 to p0*(1-epsilon),
// centred at tTreat + tMax/2 with width tMax/4.
func Tanh(t, tTreat, tMax, p0, epsilon float64) float64 {
	arg := (t - (tTreat + 0.5*tMax)) / (0.25 * tMax)
	return p0 - (p0*epsilon/2)*(1+math.Tanh(arg))
}

// Policy selects the production-rate shape.
type Policy int

const (
	PolicyStep Policy = iota
	PolicyTanh
)

func (p Policy) String() string {
	switch p {
	case PolicyStep:
		return "step"
	case PolicyTanh:
		return "tanh"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy accepts "step" or "tanh" in any case.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "step":
		return PolicyStep, nil
	case "tanh":
		return PolicyTanh, nil
	default:
		return 0, fmt.Errorf("unknown production rate policy: %s", name)
	}
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// RateFunc maps time to production rate for fixed p0 and epsilon.
type RateFunc func(t float64) float64

// Schedule is a policy with its treatment timing. TMax is only read by
// the tanh policy; zero means DefaultTMax.
type Schedule struct {
	Policy Policy
	TTreat float64
	TMax   float64
}

func DefaultSchedule() Schedule {
	return Schedule{Policy: PolicyStep, TTreat: DefaultTreatmentTime, TMax: DefaultTMax}
}

func (s Schedule) tMax() float64 {
	if s.TMax <= 0 {
		return DefaultTMax
	}
	return s.TMax
}

// Func resolves the schedule into a closure for the given p0 and epsilon.
func (s Schedule) Func(p0, epsilon float64) RateFunc {
	tTreat := s.TTreat
	switch s.Policy {
	case PolicyTanh:
		tMax := s.tMax()
		return func(t float64) float64 { return Tanh(t, tTreat, tMax, p0, epsilon) }
	default:
		return func(t float64) float64 { return Step(t, tTreat, p0, epsilon) }
	}
}

// Rate evaluates the schedule at t.
func (s Schedule) Rate(t, p0, epsilon float64) float64 {
	return s.Func(p0, epsilon)(t)
}

// Curve evaluates the schedule at each time.
func Curve(s Schedule, p0, epsilon float64, times []float64) []float64 {
	fn := s.Func(p0, epsilon)
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = fn(t)
	}
	return out
}
