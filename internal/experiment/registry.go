package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/hostsim/internal/production"
)

type Registry struct {
	studies map[string]func() []Run
}

func runLabel(policy production.Policy, tol float64) string {
	name := "Step"
	if policy == production.PolicyTanh {
		name = "Tanh"
	}
	return fmt.Sprintf("tol=%g, %s", tol, name)
}

func run(policy production.Policy, tol float64) Run {
	return Run{Label: runLabel(policy, tol), Policy: policy, Tolerance: tol}
}

func NewRegistry() *Registry {
	r := &Registry{studies: make(map[string]func() []Run)}

	// the three curves of the reference figure
	r.studies["paper"] = func() []Run {
		return []Run{
			run(production.PolicyStep, 1e-3),
			run(production.PolicyTanh, 1e-3),
			run(production.PolicyStep, 1e-8),
		}
	}
	r.studies["policies"] = func() []Run {
		return []Run{
			run(production.PolicyStep, 1e-8),
			run(production.PolicyTanh, 1e-8),
		}
	}
	r.studies["tolerances"] = func() []Run {
		return []Run{
			run(production.PolicyStep, 1e-3),
			run(production.PolicyStep, 1e-5),
			run(production.PolicyStep, 1e-8),
		}
	}

	return r
}

func (r *Registry) GetStudy(name string) ([]Run, error) {
	fn, ok := r.studies[name]
	if !ok {
		return nil, fmt.Errorf("unknown study: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListStudies() []string {
	names := make([]string, 0, len(r.studies))
	for name := range r.studies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
