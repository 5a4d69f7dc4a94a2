// Package production provides virus production-rate policies.
//
// An antiviral lowers the per-cell production rate p0 by a fraction
// epsilon once treatment acts. Two shapes are available:
//
//   - [Step]: abrupt change at the treatment time
//   - [Tanh]: smooth transition centred half a Tmax after treatment
//
// A [Schedule] binds a [Policy] to its treatment timing and is resolved
// once into a [RateFunc] before integration starts.
package production
