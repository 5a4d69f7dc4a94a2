package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/hostsim/internal/analysis"
	"github.com/san-kum/hostsim/internal/config"
	"github.com/san-kum/hostsim/internal/experiment"
	"github.com/san-kum/hostsim/internal/export"
	"github.com/san-kum/hostsim/internal/integrators"
	"github.com/san-kum/hostsim/internal/likelihood"
	"github.com/san-kum/hostsim/internal/production"
	"github.com/san-kum/hostsim/internal/report"
	"github.com/san-kum/hostsim/internal/synth"
	"github.com/san-kum/hostsim/internal/viz"
	"github.com/san-kum/hostsim/internal/withinhost"
)

var (
	configFile string
	preset     string
	logLevel   string
	// Solver and treatment overrides
	method    string
	tolerance float64
	stepSize  float64
	policy    string
	tTreat    float64
	loq       bool
	// Output
	format   string
	showPlot bool
	// Rates
	rateFrom   float64
	rateTo     float64
	ratePoints int
	// Slice
	sliceParam  string
	sliceWidth  float64
	slicePoints int
	workers     int
	// Convergence
	tolerances []float64
	reference  float64
	// Figure
	study     string
	outFile   string
	figWidth  float64
	figHeight float64
	dense     int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag values live in package
// variables, so only one tree should be executed at a time.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hostsim",
		Short:         "within-host viral dynamics lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "scenario file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset scenario")
	pf.StringVar(&logLevel, "log-level", "warning", "log level (debug, info, warning, error)")
	pf.StringVar(&method, "method", "rk45", "integrator (rk45, rk4, euler)")
	pf.Float64Var(&tolerance, "tol", 0, "adaptive tolerance (rtol = atol)")
	pf.Float64Var(&stepSize, "step", 0, "fixed step size; overrides --tol")
	pf.StringVar(&policy, "policy", "step", "production rate policy (step, tanh)")
	pf.Float64Var(&tTreat, "t-treat", production.DefaultTreatmentTime, "treatment time in days")
	pf.BoolVar(&loq, "loq", true, "apply the limit of quantification")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate log10 virus load on the time grid",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&format, "format", "table", "output format (table, csv, json)")
	simulateCmd.Flags().BoolVar(&showPlot, "plot", false, "draw an ascii chart")

	ratesCmd := &cobra.Command{
		Use:   "rates",
		Short: "production rate under both policies",
		RunE:  runRates,
	}
	ratesCmd.Flags().Float64Var(&rateFrom, "from", 2.5, "start time")
	ratesCmd.Flags().Float64Var(&rateTo, "to", 3.0, "end time")
	ratesCmd.Flags().IntVar(&ratePoints, "points", 21, "number of samples")
	ratesCmd.Flags().StringVar(&format, "format", "table", "output format (table, csv)")
	ratesCmd.Flags().BoolVar(&showPlot, "plot", false, "draw an ascii chart")

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "generate noisy synthetic observations",
		RunE:  runSynth,
	}
	synthCmd.Flags().StringVar(&format, "format", "table", "output format (table, csv, json)")

	sliceCmd := &cobra.Command{
		Use:   "slice",
		Short: "log-likelihood slice along one parameter",
		RunE:  runSlice,
	}
	sliceCmd.Flags().StringVar(&sliceParam, "param", "delta", "parameter to scan ("+strings.Join(withinhost.ParameterNames(), ", ")+")")
	sliceCmd.Flags().Float64Var(&sliceWidth, "width", config.DefaultSliceWidth, "half width of the scan")
	sliceCmd.Flags().IntVar(&slicePoints, "points", config.DefaultSlicePoints, "number of scan points")
	sliceCmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (0 = GOMAXPROCS)")
	sliceCmd.Flags().StringVar(&format, "format", "table", "output format (table, csv, json)")
	sliceCmd.Flags().BoolVar(&showPlot, "plot", false, "draw an ascii chart")

	convergeCmd := &cobra.Command{
		Use:   "converge",
		Short: "compare solutions across solver tolerances",
		RunE:  runConverge,
	}
	convergeCmd.Flags().Float64SliceVar(&tolerances, "tolerances", []float64{1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8}, "tolerances to test")
	convergeCmd.Flags().Float64Var(&reference, "reference", config.DefaultTolerance, "reference tolerance")
	convergeCmd.Flags().StringVar(&format, "format", "table", "output format (table, json)")

	figureCmd := &cobra.Command{
		Use:   "figure",
		Short: "write the three-panel figure",
		RunE:  runFigure,
	}
	figureCmd.Flags().StringVar(&study, "study", "paper", "study to run")
	figureCmd.Flags().StringVarP(&outFile, "out", "o", "hostsim.png", "output file (png, jpg, svg, pdf)")
	figureCmd.Flags().Float64Var(&figWidth, "width", 15, "width in inches")
	figureCmd.Flags().Float64Var(&figHeight, "height", 5, "height in inches")
	figureCmd.Flags().IntVar(&dense, "dense", experiment.DenseCount, "trajectory samples")
	figureCmd.Flags().IntVar(&workers, "workers", 0, "parallel evaluations (0 = GOMAXPROCS)")

	exploreCmd := &cobra.Command{
		Use:   "explore",
		Short: "interactive parameter explorer",
		RunE:  runExplore,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios and figure studies",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "presets:")
			for _, p := range config.ListPresets() {
				fmt.Fprintf(out, "  %s\n", p)
			}
			fmt.Fprintln(out, "studies:")
			for _, s := range experiment.NewRegistry().ListStudies() {
				fmt.Fprintf(out, "  %s\n", s)
			}
		},
	}

	rootCmd.AddCommand(simulateCmd, ratesCmd, synthCmd, sliceCmd, convergeCmd, figureCmd, exploreCmd, presetsCmd)
	return rootCmd
}

// loadScenario applies, in order, the default scenario, a preset, a config
// file and any flags set on the command line.
func loadScenario(cmd *cobra.Command) (*config.Scenario, error) {
	sc := config.DefaultScenario()

	if preset != "" {
		sc = config.GetPreset(preset)
		if sc == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		sc = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		m, err := integrators.ParseMethod(method)
		if err != nil {
			return nil, err
		}
		sc.Solver.Method = m
	}
	if flags.Changed("tol") {
		sc.Solver.Tolerance = tolerance
		sc.Solver.StepSize = 0
	}
	if flags.Changed("step") {
		sc.Solver.StepSize = stepSize
	}
	if flags.Changed("policy") {
		p, err := production.ParsePolicy(policy)
		if err != nil {
			return nil, err
		}
		sc.Treatment.Policy = p
	}
	if flags.Changed("t-treat") {
		sc.Treatment.TTreat = tTreat
	}
	if flags.Changed("loq") {
		sc.LimitOfQuantification = loq
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"scenario": sc.Name,
		"method":   sc.Solver.Method,
		"mode":     sc.Mode(),
		"policy":   sc.Treatment.Policy,
		"loq":      sc.LimitOfQuantification,
	}).Debug("scenario loaded")

	return sc, nil
}

func parameterMap(p withinhost.Parameters) map[string]float64 {
	out := make(map[string]float64, withinhost.NumParameters)
	for i, name := range withinhost.ParameterNames() {
		out[name] = p.Slice()[i]
	}
	return out
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	times := sc.TimeGrid()
	values, err := withinhost.New(sc.ModelConfig()).Simulate(sc.Params.Slice(), times)
	if err != nil {
		return err
	}

	doc := &export.Simulation{
		Scenario:   sc.Name,
		Method:     sc.Solver.Method.String(),
		Solver:     sc.Mode().String(),
		Policy:     sc.Treatment.Policy.String(),
		LOQ:        sc.LimitOfQuantification,
		Parameters: parameterMap(sc.Params),
		Times:      times,
		Log10V:     values,
	}

	out := cmd.OutOrStdout()
	switch format {
	case "csv":
		return export.SimulationCSV(out, doc)
	case "json":
		return export.WriteJSON(out, doc)
	case "table":
		fmt.Fprintln(out, report.Heading(fmt.Sprintf("%s  %s %s  policy=%s  loq=%t", sc.Name, doc.Method, doc.Solver, doc.Policy, doc.LOQ)))
		fmt.Fprint(out, report.Table([]string{"time", "log10_v"}, [][]float64{times, values}))
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if showPlot {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.Series("log10 V(t)", values))
	}
	return nil
}

func runRates(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	if ratePoints < 2 || !(rateTo > rateFrom) {
		return fmt.Errorf("rates need --to > --from and at least 2 points")
	}

	times := config.Linspace(rateFrom, rateTo, ratePoints)
	p0, eps := sc.Params.P0, sc.Params.Epsilon
	step := production.Curve(production.Schedule{Policy: production.PolicyStep, TTreat: sc.Treatment.TTreat, TMax: sc.Treatment.TMax}, p0, eps, times)
	tanh := production.Curve(production.Schedule{Policy: production.PolicyTanh, TTreat: sc.Treatment.TTreat, TMax: sc.Treatment.TMax}, p0, eps, times)

	out := cmd.OutOrStdout()
	header := []string{"time", "step", "tanh"}
	cols := [][]float64{times, step, tanh}
	switch format {
	case "csv":
		return export.WriteCSV(out, header, cols)
	case "table":
		fmt.Fprintln(out, report.Heading(fmt.Sprintf("production rate  p0=%g  epsilon=%g  t_treat=%g", p0, eps, sc.Treatment.TTreat)))
		fmt.Fprint(out, report.Table(header, cols))
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if showPlot {
		fmt.Fprintln(out)
		fmt.Fprintln(out, report.MultiSeries("p(t): step, tanh", step, tanh))
	}
	return nil
}

// observations generates synthetic data from the scenario. The data model
// runs without the limit of quantification; the floor is applied after
// noise.
func observations(sc *config.Scenario, times []float64) ([]float64, error) {
	cfg := sc.ModelConfig()
	cfg.LimitOfQuantification = false
	return synth.Generate(withinhost.New(cfg), sc.Params.Slice(), times, synth.Options{
		Noise: sc.Noise,
		Seed:  sc.Seed,
		Floor: withinhost.LogLimitOfQuantification,
	})
}

func runSynth(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	times := sc.TimeGrid()
	observed, err := observations(sc, times)
	if err != nil {
		return err
	}
	clean, err := withinhost.New(sc.ModelConfig()).Simulate(sc.Params.Slice(), times)
	if err != nil {
		return err
	}

	doc := &export.Simulation{
		Scenario:   sc.Name,
		Method:     sc.Solver.Method.String(),
		Solver:     sc.Mode().String(),
		Policy:     sc.Treatment.Policy.String(),
		LOQ:        sc.LimitOfQuantification,
		Parameters: parameterMap(sc.Params),
		Times:      times,
		Log10V:     clean,
		Observed:   observed,
	}

	out := cmd.OutOrStdout()
	switch format {
	case "csv":
		return export.SimulationCSV(out, doc)
	case "json":
		return export.WriteJSON(out, doc)
	case "table":
		fmt.Fprintln(out, report.Heading(fmt.Sprintf("%s  noise=%g  seed=%d", sc.Name, sc.Noise, sc.Seed)))
		fmt.Fprint(out, report.Table([]string{"time", "log10_v", "observed"}, [][]float64{times, clean, observed}))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func runSlice(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("param") {
		sc.Slice.Param = sliceParam
	}
	if cmd.Flags().Changed("width") {
		sc.Slice.Width = sliceWidth
	}
	if cmd.Flags().Changed("points") {
		sc.Slice.Points = slicePoints
	}
	if err := sc.Validate(); err != nil {
		return err
	}

	values, idx, err := sc.SliceValues()
	if err != nil {
		return err
	}

	times := sc.TimeGrid()
	observed, err := observations(sc, times)
	if err != nil {
		return err
	}

	problem, err := likelihood.NewProblem(withinhost.New(sc.ModelConfig()), times, observed)
	if err != nil {
		return err
	}
	ll := likelihood.NewGaussianLogLikelihood(problem)
	base := append(sc.Params.Slice(), sc.Noise)

	points, err := likelihood.Slice(cmd.Context(), ll, base, idx, values, workers)
	if err != nil {
		return err
	}
	best, _ := likelihood.Best(points)

	doc := &export.SliceReport{
		Scenario:  sc.Name,
		Parameter: sc.Slice.Param,
		Truth:     base[idx],
		Best:      best,
		Points:    points,
	}

	out := cmd.OutOrStdout()
	switch format {
	case "csv":
		return export.SliceCSV(out, doc)
	case "json":
		return export.WriteJSON(out, doc)
	case "table":
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i], ys[i] = p.Value, p.LogLikelihood
		}
		fmt.Fprintln(out, report.Heading(fmt.Sprintf("%s slice  truth=%g  best=%g (ll=%.4f)", doc.Parameter, doc.Truth, best.Value, best.LogLikelihood)))
		fmt.Fprint(out, report.Table([]string{doc.Parameter, "log_likelihood"}, [][]float64{xs, ys}))
		if showPlot {
			fmt.Fprintln(out)
			fmt.Fprintln(out, report.Series("log-likelihood", finite(ys)))
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func runConverge(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	build := func(tol float64) *withinhost.Model {
		cfg := sc.ModelConfig()
		cfg.Mode = withinhost.Adaptive(tol)
		return withinhost.New(cfg)
	}

	times := sc.TimeGrid()
	points, err := analysis.Convergence(build, sc.Params.Slice(), times, tolerances, reference)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return export.WriteJSON(out, &export.ConvergenceReport{
			Scenario:  sc.Name,
			Reference: reference,
			Times:     times,
			Points:    points,
		})
	case "table":
		return printConvergence(out, points)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func printConvergence(out io.Writer, points []analysis.ConvergencePoint) error {
	cols := make([][]float64, 6)
	for _, p := range points {
		cols[0] = append(cols[0], p.Tolerance)
		cols[1] = append(cols[1], p.MaxDeviation)
		cols[2] = append(cols[2], p.RMSDeviation)
		cols[3] = append(cols[3], float64(p.Stats.Steps))
		cols[4] = append(cols[4], float64(p.Stats.Rejected))
		cols[5] = append(cols[5], float64(p.Stats.Evaluations))
	}
	fmt.Fprintln(out, report.Heading(fmt.Sprintf("tolerance sweep against %g", reference)))
	fmt.Fprint(out, report.Table([]string{"tolerance", "max_dev", "rms_dev", "steps", "rejected", "evals"}, cols))
	fmt.Fprintf(out, "\nmonotone convergence: %t\n", analysis.IsDecreasing(points))
	return nil
}

func runFigure(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	runs, err := experiment.NewRegistry().GetStudy(study)
	if err != nil {
		return err
	}

	exp := experiment.New(experiment.Config{
		Scenario:   sc,
		Runs:       runs,
		DenseCount: dense,
		Workers:    workers,
	})
	res, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	if err := res.Figure().Save(outFile, vg.Length(figWidth)*vg.Inch, vg.Length(figHeight)*vg.Inch); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "figure written to %s\n", outFile)
	return nil
}

func runExplore(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(cmd)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(sc), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
