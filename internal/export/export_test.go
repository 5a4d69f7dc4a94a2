package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/hostsim/internal/likelihood"
)

func TestSimulationCSV(t *testing.T) {
	var buf bytes.Buffer
	sim := &Simulation{
		Times:    []float64{0, 1},
		Log10V:   []float64{-3.42, 1.25},
		Observed: []float64{0.7, 1.3},
	}
	if err := SimulationCSV(&buf, sim); err != nil {
		t.Fatalf("csv failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "time,log10_v,observed" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "0,-3.42,0.7" {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestWriteCSVMismatch(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"a", "b"}, [][]float64{{1, 2}, {1}}); err == nil {
		t.Error("expected column size mismatch error")
	}
	if err := WriteCSV(&buf, []string{"a"}, [][]float64{{1}, {1}}); err == nil {
		t.Error("expected header mismatch error")
	}
}

func TestSliceCSV(t *testing.T) {
	var buf bytes.Buffer
	r := &SliceReport{
		Parameter: "delta",
		Points:    []likelihood.Point{{Value: 7, LogLikelihood: -1.5}},
	}
	if err := SliceCSV(&buf, r); err != nil {
		t.Fatalf("csv failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "delta,log_likelihood\n7,-1.5\n") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	sim := &Simulation{Scenario: "paper-step", Times: []float64{0}, Log10V: []float64{0.7}}
	if err := WriteJSON(&buf, sim); err != nil {
		t.Fatalf("json failed: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["scenario"] != "paper-step" {
		t.Errorf("unexpected scenario %v", decoded["scenario"])
	}
	if _, ok := decoded["observed"]; ok {
		t.Error("observed should be omitted when empty")
	}
}
