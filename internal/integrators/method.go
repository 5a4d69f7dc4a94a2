package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/hostsim/internal/dynamo"
)

// Method selects the integration scheme.
type Method int

const (
	MethodRK45 Method = iota
	MethodRK4
	MethodEuler
)

var methodNames = map[Method]string{
	MethodRK45:  "rk45",
	MethodRK4:   "rk4",
	MethodEuler: "euler",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// Adaptive reports whether the method carries an embedded error estimate.
func (m Method) Adaptive() bool { return m == MethodRK45 }

// ParseMethod accepts method names case-insensitively ("RK45", "rk4", ...).
func ParseMethod(name string) (Method, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for m, n := range methodNames {
		if n == key {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown integrator: %s", dynamo.ErrInvalidArgument, name)
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Stepper advances a state by a fixed step.
type Stepper interface {
	Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State
}

func newStepper(m Method) Stepper {
	switch m {
	case MethodEuler:
		return NewEuler()
	case MethodRK4:
		return NewRK4()
	default:
		return NewRK45()
	}
}
