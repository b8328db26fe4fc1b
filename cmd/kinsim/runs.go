package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/kinsim/internal/analysis"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/export"
	"github.com/san-kum/kinsim/internal/storage"
	"github.com/san-kum/kinsim/internal/viz"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSOLVER\tRECORDS\tCONVERGED\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%v\t%.1fms\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Solver,
			run.Records,
			run.Converged,
			run.ElapsedMS,
		)
	}

	return w.Flush()
}

// selectFrames picks the frames to draw: the --frame flag, else every design
// variable frame, else every frame on a free body.
func selectFrames(cfg *config.Config, table *storage.FrameTable) ([]string, error) {
	if len(frameNames) > 0 {
		for _, name := range frameNames {
			if _, ok := table.Trajectory(name); !ok {
				return nil, fmt.Errorf("unknown frame %q (available: %v)", name, table.Frames)
			}
		}
		return frameNames, nil
	}

	var design, free []string
	for _, b := range cfg.Bodies {
		for _, f := range b.Frames {
			path := b.Name + "." + f.Name
			if f.DesignVariable {
				design = append(design, path)
			}
			if b.RoleName() == "free" {
				free = append(free, path)
			}
		}
	}
	if len(design) > 0 {
		return design, nil
	}
	if len(free) > 0 {
		return free, nil
	}
	return table.Frames, nil
}

type runData struct {
	meta   *storage.RunMetadata
	cfg    *config.Config
	table  *storage.FrameTable
	frames []string
	plane  analysis.Plane
}

func loadRun(runID string) (*runData, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return nil, err
	}
	table, err := st.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	if len(table.Steps) == 0 {
		return nil, fmt.Errorf("no data to plot")
	}
	frames, err := selectFrames(cfg, table)
	if err != nil {
		return nil, err
	}
	plane, err := analysis.ParsePlane(planeName)
	if err != nil {
		return nil, err
	}
	return &runData{meta: meta, cfg: cfg, table: table, frames: frames, plane: plane}, nil
}

func (r *runData) series() []export.Series {
	out := make([]export.Series, 0, len(r.frames))
	for i, name := range r.frames {
		traj, _ := r.table.Trajectory(name)
		out = append(out, export.SeriesFromProjection(name, analysis.Project(traj, r.plane), i))
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	run, err := loadRun(runID)
	if err != nil {
		return err
	}
	states, err := storage.New(dataDir).LoadStates(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", run.meta.ID)
	fmt.Printf("mechanism: %s\n", run.meta.Name)
	fmt.Printf("records: %d\n\n", len(states))

	if len(states) > 1 {
		norms := make([]float64, len(states))
		for i, s := range states {
			norms[i] = math.Log10(math.Max(s.ResidualNorm, 1e-300))
		}
		fmt.Println(asciigraph.Plot(norms, asciigraph.Height(8), asciigraph.Width(80), asciigraph.Caption("log10 residual norm")))
		fmt.Println()
	}

	axes := []string{"x", "y", "z"}
	for _, name := range run.frames {
		traj, _ := run.table.Trajectory(name)
		if len(traj) > 1 {
			data := make([][]float64, 3)
			for k := range data {
				data[k] = make([]float64, len(traj))
				for i, p := range traj {
					data[k][i] = p[k]
				}
			}
			for k, series := range data {
				fmt.Println(asciigraph.Plot(series, asciigraph.Height(6), asciigraph.Width(80), asciigraph.Caption(name+"."+axes[k])))
				fmt.Println()
			}
		}

		fmt.Printf("%s in the %s plane:\n", name, run.plane)
		fmt.Println(analysis.ProjectionToASCII(analysis.Project(traj, run.plane), 60, 20))
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	data, err := storage.New(dataDir).Export(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, data)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	rows, err := storage.New(dataDir).LoadStates(args[0])
	if err != nil {
		return err
	}
	return storage.WriteStatesCSV(os.Stdout, rows)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	run, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if canvasMode {
		return export.CanvasToSVG(w, finalCanvas(run), 4)
	}
	return export.TrajectoriesToSVG(w, run.series(), 800, 600)
}

// finalCanvas draws the joints at the last stored step and the path of every
// selected frame.
func finalCanvas(run *runData) *viz.Canvas {
	last := run.table.Positions[len(run.table.Positions)-1]
	at := make(map[string]mgl64.Vec3, len(run.table.Frames))
	for i, name := range run.table.Frames {
		at[name] = last[i]
	}

	wf := viz.NewWireframe()
	for _, j := range run.cfg.Joints {
		wf.AddEdge(at[j.Frames[0]], at[j.Frames[1]], viz.EdgeJoint)
	}
	for _, name := range run.frames {
		traj, _ := run.table.Trajectory(name)
		wf.AddTrace(traj)
	}

	cam := viz.NewCamera()
	cam.Fit(wf.Points())
	c := viz.NewCanvas(80, 40)
	viz.Render3D(c, wf, cam)
	return c
}

func exportPNG(cmd *cobra.Command, args []string) error {
	runID := args[0]
	run, err := loadRun(runID)
	if err != nil {
		return err
	}

	a, b := run.plane.String()[:1], run.plane.String()[1:]
	p, err := export.TrajectoryPlot(fmt.Sprintf("%s frame paths (%s)", run.meta.Name, run.plane), a, b, run.series())
	if err != nil {
		return err
	}

	path := outFile
	if path == "" {
		path = runID + ".png"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := export.WritePNG(f, p, 8, 6); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return f.Close()
}
