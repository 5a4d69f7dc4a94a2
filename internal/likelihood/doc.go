// Package likelihood evaluates Gaussian log-likelihoods of forward models
// against observed series and scans them along one parameter.
//
// Any type with NParameters and Simulate satisfies [ForwardModel], so a
// withinhost.Model plugs in unchanged.
package likelihood
