package withinhost

import (
	"fmt"

	"github.com/san-kum/hostsim/internal/dynamo"
)

// NumParameters is the length of the parameter vector accepted by Simulate.
const NumParameters = 5

// Parameters of the within-host model, in the order of the parameter vector.
type Parameters struct {
	Beta    float64 `yaml:"beta" json:"beta"`
	Delta   float64 `yaml:"delta" json:"delta"`
	P0      float64 `yaml:"p0" json:"p0"`
	C       float64 `yaml:"c" json:"c"`
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`
}

var parameterNames = [NumParameters]string{"beta", "delta", "p0", "c", "epsilon"}

// ParameterNames lists the parameter vector entries in order.
func ParameterNames() []string {
	return append([]string(nil), parameterNames[:]...)
}

// ParameterIndex returns the position of name in the parameter vector.
func ParameterIndex(name string) (int, error) {
	for i, n := range parameterNames {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: unknown parameter %q (want one of %v)", dynamo.ErrInvalidArgument, name, parameterNames)
}

func ParametersFromSlice(v []float64) (Parameters, error) {
	if len(v) != NumParameters {
		return Parameters{}, fmt.Errorf("%w: expected %d parameters, got %d", dynamo.ErrInvalidArgument, NumParameters, len(v))
	}
	return Parameters{Beta: v[0], Delta: v[1], P0: v[2], C: v[3], Epsilon: v[4]}, nil
}

func (p Parameters) Slice() []float64 {
	return []float64{p.Beta, p.Delta, p.P0, p.C, p.Epsilon}
}
