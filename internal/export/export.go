// Package export writes simulation results as CSV or indented JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/hostsim/internal/analysis"
	"github.com/san-kum/hostsim/internal/likelihood"
)

// Simulation is the exported form of one forward-model run.
type Simulation struct {
	Scenario   string             `json:"scenario"`
	Method     string             `json:"method"`
	Solver     string             `json:"solver"`
	Policy     string             `json:"policy"`
	LOQ        bool               `json:"limit_of_quantification"`
	Parameters map[string]float64 `json:"parameters"`
	Times      []float64          `json:"times"`
	Log10V     []float64          `json:"log10_v"`
	Observed   []float64          `json:"observed,omitempty"`
}

// SliceReport is the exported form of a log-likelihood slice.
type SliceReport struct {
	Scenario  string             `json:"scenario"`
	Parameter string             `json:"parameter"`
	Truth     float64            `json:"truth"`
	Best      likelihood.Point   `json:"best"`
	Points    []likelihood.Point `json:"points"`
}

// ConvergenceReport is the exported form of a tolerance sweep.
type ConvergenceReport struct {
	Scenario  string                      `json:"scenario"`
	Reference float64                     `json:"reference_tolerance"`
	Times     []float64                   `json:"times"`
	Points    []analysis.ConvergencePoint `json:"points"`
}

func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteCSV writes one column per header entry; all columns must have the
// same length.
func WriteCSV(w io.Writer, header []string, cols [][]float64) error {
	if len(cols) == 0 || len(cols) != len(header) {
		return errors.New("csv: header and columns mismatch")
	}
	n := len(cols[0])
	for _, c := range cols {
		if len(c) != n {
			return errors.New("csv: column size mismatch")
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: cannot write header: %w", err)
	}

	row := make([]string, len(cols))
	for r := 0; r < n; r++ {
		for c := range cols {
			row[c] = strconv.FormatFloat(cols[c][r], 'g', 15, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: cannot write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SimulationCSV writes time, log10_v and, when present, observed columns.
func SimulationCSV(w io.Writer, s *Simulation) error {
	header := []string{"time", "log10_v"}
	cols := [][]float64{s.Times, s.Log10V}
	if len(s.Observed) > 0 {
		header = append(header, "observed")
		cols = append(cols, s.Observed)
	}
	return WriteCSV(w, header, cols)
}

func SliceCSV(w io.Writer, r *SliceReport) error {
	values := make([]float64, len(r.Points))
	lls := make([]float64, len(r.Points))
	for i, p := range r.Points {
		values[i] = p.Value
		lls[i] = p.LogLikelihood
	}
	return WriteCSV(w, []string{r.Parameter, "log_likelihood"}, [][]float64{values, lls})
}
