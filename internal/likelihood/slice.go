package likelihood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/hostsim/internal/dynamo"
)

// Point is one log-likelihood evaluation along a slice.
type Point struct {
	Value         float64 `json:"value"`
	LogLikelihood float64 `json:"log_likelihood"`
}

// MarshalJSON writes the log-likelihood of a failed evaluation as null.
func (p Point) MarshalJSON() ([]byte, error) {
	var ll *float64
	if !math.IsInf(p.LogLikelihood, 0) && !math.IsNaN(p.LogLikelihood) {
		ll = &p.LogLikelihood
	}
	return json.Marshal(struct {
		Value         float64  `json:"value"`
		LogLikelihood *float64 `json:"log_likelihood"`
	}{p.Value, ll})
}

// Evaluator is anything returning a log-likelihood for a parameter vector.
type Evaluator interface {
	NParameters() int
	Evaluate(parameters []float64) (float64, error)
}

// Slice evaluates ll at base with entry index replaced by each of values.
// Evaluations run on up to workers goroutines (GOMAXPROCS when <= 0).
// Evaluations whose simulation fails are recorded as -Inf.
func Slice(ctx context.Context, ll Evaluator, base []float64, index int, values []float64, workers int) ([]Point, error) {
	if len(base) != ll.NParameters() {
		return nil, fmt.Errorf("%w: expected %d parameters, got %d", dynamo.ErrInvalidArgument, ll.NParameters(), len(base))
	}
	if index < 0 || index >= len(base) {
		return nil, fmt.Errorf("%w: parameter index %d out of range", dynamo.ErrInvalidArgument, index)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	points := make([]Point, len(values))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, v := range values {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			params := make([]float64, len(base))
			copy(params, base)
			params[index] = v

			val, err := ll.Evaluate(params)
			if err != nil {
				if !errors.Is(err, dynamo.ErrIntegrationFailure) {
					return err
				}
				logrus.WithFields(logrus.Fields{"index": index, "value": v}).Warnf("slice point failed: %v", err)
				val = math.Inf(-1)
			}
			points[i] = Point{Value: v, LogLikelihood: val}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Best returns the point with the highest log-likelihood.
func Best(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if p.LogLikelihood > best.LogLikelihood {
			best = p
		}
	}
	return best, true
}
