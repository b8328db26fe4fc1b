package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/kinsim/internal/config"
	"github.com/san-kum/kinsim/internal/kinematics"
	"github.com/san-kum/kinsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	framesFile   = "frames.csv"
	configFile   = "config.yaml"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Solver     string             `json:"solver"`
	Steps      int                `json:"steps"`
	Tolerance  float64            `json:"tolerance"`
	Lenient    bool               `json:"lenient"`
	Records    int                `json:"records"`
	Converged  bool               `json:"converged"`
	FreeBodies []string           `json:"free_bodies"`
	Frames     []string           `json:"frames"`
	ElapsedMS  float64            `json:"elapsed_ms"`
	Metrics    map[string]float64 `json:"metrics"`
	Error      string             `json:"error,omitempty"`
}

// Run is everything Save persists about one simulation.
type Run struct {
	Config  *config.Config
	System  *kinematics.System
	History *sim.History
	Metrics map[string]float64
	Elapsed time.Duration
	// Err is the error the run stopped with, if any.
	Err error
}

// StateRow is one line of states.csv.
type StateRow struct {
	Step         int       `json:"step"`
	Converged    bool      `json:"converged"`
	Status       string    `json:"status"`
	ResidualNorm float64   `json:"residual_norm"`
	Iterations   int       `json:"iterations"`
	Evaluations  int       `json:"evaluations"`
	X            []float64 `json:"x"`
}

// FrameTable holds the world position of every frame at every step.
type FrameTable struct {
	Frames    []string       `json:"frames"`
	Steps     []int          `json:"steps"`
	Positions [][]mgl64.Vec3 `json:"positions"`
}

// Trajectory returns the positions of one frame across all steps.
func (t *FrameTable) Trajectory(path string) ([]mgl64.Vec3, bool) {
	col := -1
	for i, f := range t.Frames {
		if f == path {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, false
	}
	out := make([]mgl64.Vec3, len(t.Positions))
	for i, row := range t.Positions {
		out[i] = row[col]
	}
	return out, true
}

// Save writes a run directory and returns its id.
func (s *Store) Save(run Run) (string, error) {
	if run.Config == nil || run.System == nil || run.History == nil {
		return "", fmt.Errorf("save: incomplete run")
	}
	runID := fmt.Sprintf("%s_%d", run.Config.Name, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	frames := framePaths(run.System)
	meta := RunMetadata{
		ID:        runID,
		Name:      run.Config.Name,
		Timestamp: time.Now(),
		Solver:    run.Config.Run.Solver,
		Steps:     run.Config.Run.Steps,
		Tolerance: run.Config.Run.Tolerance,
		Lenient:   run.Config.Run.Lenient,
		Records:   run.History.Len(),
		Converged: run.Err == nil && run.History.Converged(),
		Frames:    frames,
		ElapsedMS: float64(run.Elapsed.Microseconds()) / 1000,
		Metrics:   run.Metrics,
	}
	for _, b := range run.System.FreeBodies() {
		meta.FreeBodies = append(meta.FreeBodies, b.Name)
	}
	if run.Err != nil {
		meta.Error = run.Err.Error()
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), run.Config); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, statesFile), run.History); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, framesFile), run.System, run.History); err != nil {
		return "", err
	}
	return runID, nil
}

func framePaths(sys *kinematics.System) []string {
	var out []string
	for _, b := range sys.Bodies() {
		for _, f := range b.Frames() {
			out = append(out, f.Path())
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeStates(path string, h *sim.History) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := make([]StateRow, len(h.Records))
	for i, r := range h.Records {
		rows[i] = StateRow{
			Step:         r.Step,
			Converged:    r.Converged,
			Status:       r.Status.String(),
			ResidualNorm: r.ResidualNorm,
			Iterations:   r.Iterations,
			Evaluations:  r.Evaluations,
			X:            r.X,
		}
	}
	if err := WriteStatesCSV(f, rows); err != nil {
		return err
	}
	return f.Close()
}

func writeFrames(path string, sys *kinematics.System, h *sim.History) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	var frames []*kinematics.Frame
	header := []string{"step"}
	for _, b := range sys.Bodies() {
		for _, fr := range b.Frames() {
			frames = append(frames, fr)
			p := fr.Path()
			header = append(header, p+".x", p+".y", p+".z")
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range h.Records {
		row := []string{strconv.Itoa(r.Step)}
		for _, fr := range frames {
			pos, err := r.Poses.FramePosition(fr)
			if err != nil {
				return fmt.Errorf("step %d: frame %s: %w", r.Step, fr.Path(), err)
			}
			row = append(row, formatFloat(pos.X()), formatFloat(pos.Y()), formatFloat(pos.Z()))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns the metadata of every stored run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig reads back the config a run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadStates(runID string) ([]StateRow, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []StateRow{}, nil
	}

	rows := make([]StateRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 6 {
			return nil, fmt.Errorf("%s line %d: expected at least 6 fields, got %d", statesFile, i+2, len(record))
		}
		row := StateRow{Status: record[2]}
		var perr error
		parse := func(dst *int, s string) {
			if perr == nil {
				*dst, perr = strconv.Atoi(s)
			}
		}
		parse(&row.Step, record[0])
		parse(&row.Iterations, record[4])
		parse(&row.Evaluations, record[5])
		if perr == nil {
			row.Converged, perr = strconv.ParseBool(record[1])
		}
		if perr == nil {
			row.ResidualNorm, perr = strconv.ParseFloat(record[3], 64)
		}
		if perr == nil {
			row.X, perr = parseFloats(record[6:])
		}
		if perr != nil {
			return nil, fmt.Errorf("%s line %d: %w", statesFile, i+2, perr)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) LoadFrames(runID string) (*FrameTable, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		return nil, err
	}
	table := &FrameTable{}
	if len(records) == 0 {
		return table, nil
	}

	header := records[0]
	if (len(header)-1)%3 != 0 {
		return nil, fmt.Errorf("%s: malformed header", framesFile)
	}
	for i := 1; i < len(header); i += 3 {
		name := header[i]
		table.Frames = append(table.Frames, name[:len(name)-2])
	}

	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", framesFile, i+2, len(header), len(record))
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, i+2, err)
		}
		vals, err := parseFloats(record[1:])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, i+2, err)
		}
		pos := make([]mgl64.Vec3, len(table.Frames))
		for j := range pos {
			pos[j] = mgl64.Vec3{vals[3*j], vals[3*j+1], vals[3*j+2]}
		}
		table.Steps = append(table.Steps, step)
		table.Positions = append(table.Positions, pos)
	}
	return table, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
