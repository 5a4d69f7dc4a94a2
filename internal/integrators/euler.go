package integrators

import "github.com/san-kum/hostsim/internal/dynamo"

// Euler is the explicit first-order method. Fixed step only.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	return x.Add(dyn.Derive(x, t).Scale(dt))
}
