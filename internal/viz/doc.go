// Package viz provides an interactive terminal explorer for the
// within-host model, built on Bubble Tea.
//
// Every change re-simulates the model and redraws log10 V(t).
//
// # Key Bindings
//
//	Tab     - Select next parameter
//	Up/K    - Increase selected parameter by 5%
//	Down/J  - Decrease selected parameter by 5%
//	P       - Toggle step/tanh production rate
//	L       - Toggle limit of quantification
//	T       - Cycle color themes
//	R       - Reset to the scenario values
//	Q       - Quit
package viz
