// Package experiment runs the multi-run study behind the reference figure:
// per run it draws synthetic data from a tight-tolerance solve, simulates a
// dense trajectory at the run's tolerance and scans the log-likelihood
// along one parameter.
package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/hostsim/internal/config"
	"github.com/san-kum/hostsim/internal/likelihood"
	"github.com/san-kum/hostsim/internal/production"
	"github.com/san-kum/hostsim/internal/report"
	"github.com/san-kum/hostsim/internal/synth"
	"github.com/san-kum/hostsim/internal/withinhost"
)

const (
	DataTolerance = 1e-13
	DenseCount    = 5000
	RatePoints    = 1000
)

// Run is one curve of the study.
type Run struct {
	Label     string
	Policy    production.Policy
	Tolerance float64
}

type Config struct {
	Scenario *config.Scenario
	Runs     []Run
	// DenseCount is the number of trajectory samples; 0 means DenseCount.
	DenseCount int
	// RateWindow is the time range of the production-rate panel; the zero
	// value means t_treat -/+ 0.275 days.
	RateWindow [2]float64
	Workers    int
}

type RunResult struct {
	Run        Run
	Times      []float64
	Observed   []float64
	DenseTimes []float64
	Dense      []float64
	Slice      []likelihood.Point
}

type Result struct {
	Param     string
	Truth     float64
	RateTimes []float64
	StepRate  []float64
	TanhRate  []float64
	Runs      []RunResult
}

type Experiment struct {
	cfg Config
	log *logrus.Entry
}

func New(cfg Config) *Experiment {
	if cfg.DenseCount <= 0 {
		cfg.DenseCount = DenseCount
	}
	if cfg.RateWindow == [2]float64{} && cfg.Scenario != nil {
		tt := cfg.Scenario.Treatment.TTreat
		cfg.RateWindow = [2]float64{tt - 0.275, tt + 0.225}
	}
	return &Experiment{
		cfg: cfg,
		log: logrus.WithField("component", "experiment"),
	}
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	sc := e.cfg.Scenario
	if sc == nil {
		return nil, fmt.Errorf("experiment has no scenario")
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	if len(e.cfg.Runs) == 0 {
		return nil, fmt.Errorf("experiment has no runs")
	}

	sliceValues, idx, err := sc.SliceValues()
	if err != nil {
		return nil, err
	}

	res := &Result{
		Param:     sc.Slice.Param,
		Truth:     sc.Params.Slice()[idx],
		RateTimes: config.Linspace(e.cfg.RateWindow[0], e.cfg.RateWindow[1], RatePoints),
	}
	p := sc.Params
	step := production.Schedule{Policy: production.PolicyStep, TTreat: sc.Treatment.TTreat, TMax: sc.Treatment.TMax}
	tanh := production.Schedule{Policy: production.PolicyTanh, TTreat: sc.Treatment.TTreat, TMax: sc.Treatment.TMax}
	res.StepRate = production.Curve(step, p.P0, p.Epsilon, res.RateTimes)
	res.TanhRate = production.Curve(tanh, p.P0, p.Epsilon, res.RateTimes)

	for _, run := range e.cfg.Runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rr, err := e.runOne(ctx, run, sliceValues, idx)
		if err != nil {
			return nil, fmt.Errorf("run %q: %w", run.Label, err)
		}
		res.Runs = append(res.Runs, *rr)
	}
	return res, nil
}

func (e *Experiment) runOne(ctx context.Context, run Run, sliceValues []float64, idx int) (*RunResult, error) {
	sc := e.cfg.Scenario
	params := sc.Params.Slice()
	times := sc.TimeGrid()

	dataCfg := sc.ModelConfig()
	dataCfg.Treatment.Policy = run.Policy
	dataCfg.Mode = withinhost.Adaptive(DataTolerance)
	dataCfg.LimitOfQuantification = false

	observed, err := synth.Generate(withinhost.New(dataCfg), params, times, synth.Options{
		Noise: sc.Noise,
		Seed:  sc.Seed,
		Floor: withinhost.LogLimitOfQuantification,
	})
	if err != nil {
		return nil, err
	}

	fitCfg := sc.ModelConfig()
	fitCfg.Treatment.Policy = run.Policy
	fitCfg.Mode = withinhost.Adaptive(run.Tolerance)
	model := withinhost.New(fitCfg)

	dense := config.Linspace(sc.Times.Start, sc.Times.Stop, e.cfg.DenseCount)
	trajectory, err := model.Simulate(params, dense)
	if err != nil {
		return nil, err
	}

	problem, err := likelihood.NewProblem(model, times, observed)
	if err != nil {
		return nil, err
	}
	base := append(sc.Params.Slice(), sc.Noise)
	points, err := likelihood.Slice(ctx, likelihood.NewGaussianLogLikelihood(problem), base, idx, sliceValues, e.cfg.Workers)
	if err != nil {
		return nil, err
	}

	best, _ := likelihood.Best(points)
	e.log.WithFields(logrus.Fields{
		"run":       run.Label,
		"tolerance": run.Tolerance,
		"best":      best.Value,
	}).Info("run complete")

	return &RunResult{
		Run:        run,
		Times:      times,
		Observed:   observed,
		DenseTimes: dense,
		Dense:      trajectory,
		Slice:      points,
	}, nil
}

// Figure arranges the result for report.Figure. Slice points with a
// failed simulation are left out.
func (r *Result) Figure() *report.Figure {
	f := &report.Figure{
		Rates: []report.Curve{
			{Label: "Step", X: r.RateTimes, Y: r.StepRate},
			{Label: "Tanh", X: r.RateTimes, Y: r.TanhRate},
		},
		SliceParam: r.Param,
	}
	for _, rr := range r.Runs {
		f.Trajectories = append(f.Trajectories, report.Curve{Label: rr.Run.Label, X: rr.DenseTimes, Y: rr.Dense})
		f.Observations = append(f.Observations, report.Curve{X: rr.Times, Y: rr.Observed})

		var xs, ys []float64
		for _, pt := range rr.Slice {
			if math.IsInf(pt.LogLikelihood, 0) || math.IsNaN(pt.LogLikelihood) {
				continue
			}
			xs = append(xs, pt.Value)
			ys = append(ys, pt.LogLikelihood)
		}
		f.Slices = append(f.Slices, report.Curve{Label: rr.Run.Label, X: xs, Y: ys})
	}
	return f
}
