package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/kinsim/internal/analysis"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/experiment"
	"github.com/san-kum/kinsim/internal/optim"
	"github.com/san-kum/kinsim/internal/sim"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	configFile    string
	steps         int
	tolerance     float64
	solverName    string
	maxIterations int
	stepTimeout   time.Duration
	lenient       bool
	assemble      bool
	concurrent    bool
	save          bool

	workers int

	sweepParams []string
	metricName  string

	frameNames []string
	planeName  string
	outFile    string
	canvasMode bool
	theme      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kinsim",
		Short:         "rigid-body constraint kinematics solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".kinsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every solver step to stderr")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "solve a mechanism step by step",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().BoolVar(&save, "save", true, "store the run under the data directory")

	playCmd := &cobra.Command{
		Use:   "play [preset]",
		Short: "solve a mechanism and replay it in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  playSimulation,
	}
	addRunFlags(playCmd)
	playCmd.Flags().StringVar(&theme, "theme", viz.CurrentTheme.Name, "color theme")

	checkCmd := &cobra.Command{
		Use:   "check [preset...]",
		Short: "analyze topology and solve presets in parallel",
		RunE:  checkPresets,
	}
	checkCmd.Flags().IntVar(&workers, "workers", 4, "presets solved at once")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "grid search design-variable frame offsets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepDesign,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepParams, "param", nil, "body.frame.axis=lo:hi:n (repeatable)")
	sweepCmd.Flags().StringVar(&metricName, "metric", "solver_iterations", "metric to minimize")
	_ = sweepCmd.MarkFlagRequired("param")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPS\tBODIES\tJOINTS\tDESCRIPTION")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", name, cfg.Run.Steps, len(cfg.Bodies), len(cfg.Joints), cfg.Description)
			}
			return w.Flush()
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot residuals and frame paths of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	addFrameFlags(plotCmd)

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-step states to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export frame paths to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	addFrameFlags(exportSVGCmd)
	exportSVGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().BoolVar(&canvasMode, "canvas", false, "render the final step as a braille wireframe")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "plot frame paths to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	addFrameFlags(exportPNGCmd)
	exportPNGCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default <run_id>.png)")

	rootCmd.AddCommand(runCmd, playCmd, checkCmd, sweepCmd, presetsCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, exportPNGCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of solve steps")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "residual norm tolerance")
	cmd.Flags().StringVar(&solverName, "solver", config.DefaultSolver, "solver method (lm, bfgs)")
	cmd.Flags().IntVar(&maxIterations, "max-iter", config.DefaultMaxIterations, "solver iterations per step")
	cmd.Flags().DurationVar(&stepTimeout, "timeout", 0, "wall time budget per step (0 = none)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "record unconverged steps and continue")
	cmd.Flags().BoolVar(&assemble, "assemble", false, "solve the initial state before step 1")
	cmd.Flags().BoolVar(&concurrent, "concurrent", false, "evaluate Jacobian columns concurrently")
}

func addFrameFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&frameNames, "frame", nil, "frame paths to draw (default: design variables, else free body frames)")
	cmd.Flags().StringVar(&planeName, "plane", "xz", "projection plane (xy, xz, yz)")
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "kinsim ", log.LstdFlags|log.Lmicroseconds)
}

// loadConfig resolves the config from --config or a preset name, then
// applies any run flag the user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) == 1:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Run.Steps = steps
	}
	if flags.Changed("tol") {
		cfg.Run.Tolerance = tolerance
	}
	if flags.Changed("solver") {
		cfg.Run.Solver = solverName
	}
	if flags.Changed("max-iter") {
		cfg.Run.MaxIterations = maxIterations
	}
	if flags.Changed("timeout") {
		cfg.Run.StepTimeout = stepTimeout
	}
	if flags.Changed("lenient") {
		cfg.Run.Lenient = lenient
	}
	if flags.Changed("assemble") {
		cfg.Run.AssembleInitial = assemble
	}
	if flags.Changed("concurrent") {
		cfg.Run.Concurrent = concurrent
	}
	return cfg, nil
}

// execute sets up and runs an experiment. The history is returned even when
// the run fails part way.
func execute(ctx context.Context, cfg *config.Config) (*experiment.Experiment, *sim.History, time.Duration, error) {
	exp := experiment.New(cfg)
	if err := exp.Setup(exp.Registry().DefaultMetrics()); err != nil {
		return nil, nil, 0, err
	}
	if verbose {
		exp.SetLogger(newLogger())
	}

	start := time.Now()
	h, err := exp.Run(ctx)
	return exp, h, time.Since(start), err
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("solving %s (%d steps, %s)...\n", cfg.Name, cfg.Run.Steps, cfg.Run.Solver)
	exp, h, elapsed, runErr := execute(ctx, cfg)
	if exp == nil {
		return runErr
	}

	ms := exp.GetSimulator().Metrics()
	summary := viz.Summary{
		Name:    cfg.Name,
		Solver:  cfg.Run.Solver,
		History: h,
		Metrics: ms,
		Elapsed: elapsed,
		Err:     runErr,
	}

	if save && h != nil && h.Len() > 0 {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		values := make(map[string]float64, len(ms))
		for _, m := range ms {
			values[m.Name()] = m.Value()
		}
		runID, err := st.Save(storage.Run{
			Config:  cfg,
			System:  exp.System(),
			History: h,
			Metrics: values,
			Elapsed: elapsed,
			Err:     runErr,
		})
		if err != nil {
			return err
		}
		summary.RunID = runID
	}

	fmt.Println(viz.RunSummary(summary))
	return runErr
}

func playSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	viz.SetTheme(theme)

	exp, h, _, runErr := execute(context.Background(), cfg)
	if exp == nil {
		return runErr
	}
	var stepErr *sim.StepError
	if runErr != nil && !errors.As(runErr, &stepErr) {
		return runErr
	}
	if h == nil || h.Len() == 0 {
		return fmt.Errorf("nothing to play")
	}

	p := tea.NewProgram(viz.NewPlayer(cfg.Name, exp.System(), h), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return runErr
}

func checkPresets(cmd *cobra.Command, args []string) error {
	names := args
	if len(names) == 0 {
		names = config.ListPresets()
	}

	registry := experiment.NewRegistry()
	jobs := make([]sim.Job, 0, len(names))
	for _, name := range names {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		exp := experiment.New(cfg)
		if err := exp.Setup(registry.DefaultMetrics()); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if verbose {
			exp.SetLogger(newLogger())
		}

		report := analysis.Analyze(exp.System())
		fmt.Printf("== %s\n%s", name, report)
		for _, w := range report.Warnings() {
			fmt.Printf("warning: %s\n", w)
		}
		fmt.Println()

		jobs = append(jobs, sim.Job{Name: name, System: exp.System(), Config: exp.SimConfig(), Simulator: exp.GetSimulator()})
	}

	outcomes := sim.RunBatch(cmd.Context(), jobs, workers)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tRECORDS\tCONVERGED\tFINAL RESIDUAL\tERROR")
	failed := 0
	for _, o := range outcomes {
		records, converged, final := 0, false, 0.0
		if o.History != nil {
			records, converged = o.History.Len(), o.History.Converged()
			if rec, ok := o.History.Final(); ok {
				final = rec.ResidualNorm
			}
		}
		errText := "-"
		if o.Err != nil {
			errText = o.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%d\t%v\t%.3e\t%s\n", o.Name, records, converged, final, errText)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d presets failed", failed, len(outcomes))
	}
	return nil
}

func sweepDesign(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	params := make([]optim.Param, 0, len(sweepParams))
	ranges := make([][]float64, 0, len(sweepParams))
	for _, s := range sweepParams {
		p, values, err := optim.ParseAssignment(s)
		if err != nil {
			return err
		}
		params = append(params, p)
		ranges = append(ranges, values)
	}
	g, err := optim.NewGridSearch(params, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("sweeping %s over %d points, minimizing %s...\n", cfg.Name, g.Size(), metricName)
	res, err := g.Search(ctx, cfg, metricName)
	if res != nil && len(res.Trials) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		names := make([]string, len(params))
		for i, p := range params {
			names[i] = p.String()
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
		for _, trial := range res.Trials {
			for _, name := range names {
				fmt.Fprintf(w, "%.6g\t", trial.Values[name])
			}
			if trial.Err != nil {
				fmt.Fprintf(w, "failed: %v\n", trial.Err)
			} else {
				fmt.Fprintf(w, "%.6g\n", trial.Value)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}

	best := make([]string, 0, len(res.Best))
	for name, v := range res.Best {
		best = append(best, fmt.Sprintf("%s=%.6g", name, v))
	}
	sort.Strings(best)
	fmt.Printf("\nbest %s %.6g at %s\n", metricName, res.Value, strings.Join(best, " "))
	return nil
}
