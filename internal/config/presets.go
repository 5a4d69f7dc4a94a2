package config

import (
	"sort"

	"github.com/san-kum/hostsim/internal/production"
)

// Presets reproduce the three curves of the reference figure plus an
// untreated control.
var Presets = map[string]func() *Scenario{
	"paper-step": func() *Scenario {
		sc := DefaultScenario()
		sc.Name = "paper-step"
		sc.Solver.Tolerance = 1e-3
		return sc
	},
	"paper-tanh": func() *Scenario {
		sc := DefaultScenario()
		sc.Name = "paper-tanh"
		sc.Solver.Tolerance = 1e-3
		sc.Treatment.Policy = production.PolicyTanh
		return sc
	},
	"paper-step-tight": func() *Scenario {
		sc := DefaultScenario()
		sc.Name = "paper-step-tight"
		sc.Solver.Tolerance = 1e-8
		return sc
	},
	"untreated": func() *Scenario {
		sc := DefaultScenario()
		sc.Name = "untreated"
		sc.Params.Epsilon = 0
		return sc
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Scenario {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
