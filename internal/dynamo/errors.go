package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidArgument indicates malformed input (parameter count, time grid).
	ErrInvalidArgument = errors.New("dynamo: invalid argument")

	// ErrIntegrationFailure is matched by every failure raised while integrating.
	ErrIntegrationFailure = errors.New("dynamo: integration failure")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrMaxSteps indicates the step limit was reached before the end of the span.
	ErrMaxSteps = errors.New("dynamo: maximum number of steps exceeded")
)

// SimulationError wraps an integration failure with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}

// Is reports every SimulationError as an integration failure.
func (e *SimulationError) Is(target error) bool {
	return target == ErrIntegrationFailure
}
