package likelihood

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/san-kum/hostsim/internal/dynamo"
)

// ForwardModel maps a parameter vector and times to predicted observations.
type ForwardModel interface {
	NParameters() int
	Simulate(parameters []float64, times []float64) ([]float64, error)
}

// Problem pairs a model with one observed series.
type Problem struct {
	Model  ForwardModel
	Times  []float64
	Values []float64
}

func NewProblem(model ForwardModel, times, values []float64) (*Problem, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times but %d values", dynamo.ErrInvalidArgument, len(times), len(values))
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: empty problem", dynamo.ErrInvalidArgument)
	}
	return &Problem{Model: model, Times: times, Values: values}, nil
}

// GaussianLogLikelihood assumes independent N(0, sigma^2) errors with sigma
// unknown; sigma is the last entry of the parameter vector.
type GaussianLogLikelihood struct {
	problem *Problem
}

func NewGaussianLogLikelihood(p *Problem) *GaussianLogLikelihood {
	return &GaussianLogLikelihood{problem: p}
}

// NParameters is the model's parameter count plus one for sigma.
func (g *GaussianLogLikelihood) NParameters() int {
	return g.problem.Model.NParameters() + 1
}

func (g *GaussianLogLikelihood) Evaluate(parameters []float64) (float64, error) {
	if len(parameters) != g.NParameters() {
		return 0, fmt.Errorf("%w: expected %d parameters, got %d", dynamo.ErrInvalidArgument, g.NParameters(), len(parameters))
	}
	n := len(parameters) - 1
	sigma := parameters[n]
	if !(sigma > 0) {
		return 0, fmt.Errorf("%w: sigma must be positive, got %g", dynamo.ErrInvalidArgument, sigma)
	}

	predicted, err := g.problem.Model.Simulate(parameters[:n], g.problem.Times)
	if err != nil {
		return 0, err
	}

	noise := distuv.Normal{Mu: 0, Sigma: sigma}
	total := 0.0
	for i, y := range g.problem.Values {
		total += noise.LogProb(y - predicted[i])
	}
	if math.IsNaN(total) {
		return 0, fmt.Errorf("%w: log-likelihood is NaN", dynamo.ErrIntegrationFailure)
	}
	return total, nil
}
