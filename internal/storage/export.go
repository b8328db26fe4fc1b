package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

type ExportData struct {
	Metadata *RunMetadata `json:"metadata"`
	States   []StateRow   `json:"states"`
	Frames   *FrameTable  `json:"frames"`
}

// Export gathers everything stored for a run.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	states, err := s.LoadStates(runID)
	if err != nil {
		return nil, err
	}
	frames, err := s.LoadFrames(runID)
	if err != nil {
		return nil, err
	}
	return &ExportData{Metadata: meta, States: states, Frames: frames}, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteStatesCSV writes rows in the states.csv layout: step, converged,
// status, residual_norm, iterations, evaluations, then x0..xn.
func WriteStatesCSV(w io.Writer, rows []StateRow) error {
	cw := csv.NewWriter(w)

	header := []string{"step", "converged", "status", "residual_norm", "iterations", "evaluations"}
	if len(rows) > 0 {
		for i := range rows[0].X {
			header = append(header, fmt.Sprintf("x%d", i))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Step),
			strconv.FormatBool(r.Converged),
			r.Status,
			formatFloat(r.ResidualNorm),
			strconv.Itoa(r.Iterations),
			strconv.Itoa(r.Evaluations),
		}
		for _, v := range r.X {
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
