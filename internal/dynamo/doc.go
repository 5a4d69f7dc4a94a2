// Package dynamo provides core primitives for integrating ordinary
// differential equations.
//
// The package defines the types shared by the integrators and the
// forward models built on top of them:
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Func]: adapter turning a closure into a [System]
//   - [SimulationError]: integration failure with step/time context
//
// # Example
//
//	sys := dynamo.Func(func(t float64, x dynamo.State) dynamo.State {
//		return dynamo.State{-x[0]}
//	})
//	traj, err := integrators.Solve(sys, [2]float64{0, 1}, dynamo.State{1}, times, opts)
//
// # Errors
//
// Every integration failure matches [ErrIntegrationFailure] under
// errors.Is, regardless of the more specific cause it wraps.
package dynamo
