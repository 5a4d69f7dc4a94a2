package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/hostsim/internal/config"
	"github.com/san-kum/hostsim/internal/production"
	"github.com/san-kum/hostsim/internal/withinhost"
)

const samples = 140

// Model is the explorer state. It is a value type; Update returns the
// modified copy.
type Model struct {
	scenario *config.Scenario
	names    []string
	params   []float64
	initial  []float64
	selected int
	policy   production.Policy
	loq      bool
	theme    int
	times    []float64
	series   []float64
	err      error
}

// NewModel starts the explorer from sc and runs the first simulation.
func NewModel(sc *config.Scenario) Model {
	params := sc.Params.Slice()
	initial := make([]float64, len(params))
	copy(initial, params)

	m := Model{
		scenario: sc,
		names:    withinhost.ParameterNames(),
		params:   params,
		initial:  initial,
		policy:   sc.Treatment.Policy,
		loq:      sc.LimitOfQuantification,
		times:    config.Linspace(sc.Times.Start, sc.Times.Stop, samples),
	}
	m.simulate()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.selected = (m.selected + 1) % len(m.params)
		return m, nil
	case "t":
		m.theme = (m.theme + 1) % len(themes)
		return m, nil
	case "up", "k":
		m.adjust(1.05)
	case "down", "j":
		m.adjust(0.95)
	case "p":
		if m.policy == production.PolicyStep {
			m.policy = production.PolicyTanh
		} else {
			m.policy = production.PolicyStep
		}
	case "l":
		m.loq = !m.loq
	case "r":
		m.reset()
	default:
		return m, nil
	}

	m.simulate()
	return m, nil
}

// adjust scales the selected parameter. Zero values start from 1e-6 so they
// can be moved; efficacy stays within [0, 1].
func (m *Model) adjust(factor float64) {
	params := make([]float64, len(m.params))
	copy(params, m.params)

	v := params[m.selected]
	if v == 0 {
		v = 1e-6
	}
	v *= factor
	if m.names[m.selected] == "epsilon" && v > 1 {
		v = 1
	}
	params[m.selected] = v
	m.params = params
}

func (m *Model) reset() {
	params := make([]float64, len(m.initial))
	copy(params, m.initial)
	m.params = params
	m.policy = m.scenario.Treatment.Policy
	m.loq = m.scenario.LimitOfQuantification
}

func (m *Model) simulate() {
	cfg := m.scenario.ModelConfig()
	cfg.Treatment.Policy = m.policy
	cfg.LimitOfQuantification = m.loq

	m.series, m.err = withinhost.New(cfg).Simulate(m.params, m.times)
}

// Params returns the current parameter vector.
func (m Model) Params() []float64 {
	out := make([]float64, len(m.params))
	copy(out, m.params)
	return out
}

func (m Model) Policy() production.Policy { return m.policy }

func (m Model) LimitOfQuantification() bool { return m.loq }

func (m Model) Err() error { return m.err }

func (m Model) View() string {
	st := newStyles(themes[m.theme])

	var graph string
	switch {
	case m.err != nil:
		graph = st.err.Render("simulation failed: " + m.err.Error())
	case len(m.series) > 1:
		graph = st.graph.Render(asciigraph.Plot(m.series,
			asciigraph.Height(16),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("log10 V(t), t in [%g, %g]", m.times[0], m.times[len(m.times)-1])),
		))
	}

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.scenario.Name)) + "\n")
	s.WriteString(st.label.Render("Policy") + st.value.Render(m.policy.String()) + "\n")
	s.WriteString(st.label.Render("LOQ") + st.value.Render(fmt.Sprintf("%t", m.loq)) + "\n")
	s.WriteString(st.label.Render("Solver") + st.value.Render(m.scenario.Mode().String()) + "\n")
	if m.err == nil && len(m.series) > 0 {
		peak, at := m.series[0], m.times[0]
		for i, v := range m.series {
			if v > peak {
				peak, at = v, m.times[i]
			}
		}
		s.WriteString(st.label.Render("Peak") + st.value.Render(fmt.Sprintf("%.2f at t=%.2f", peak, at)) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	for i, name := range m.names {
		line := fmt.Sprintf("%-8s %.4g", name, m.params[i])
		if m.initial[i] != 0 && m.params[i] != m.initial[i] {
			line += fmt.Sprintf(" (%+.0f%%)", 100*(m.params[i]/m.initial[i]-1))
		}
		if i == m.selected {
			s.WriteString(st.active.Render("> "+line) + "\n")
		} else {
			s.WriteString(st.value.Render("  "+line) + "\n")
		}
	}
	s.WriteString(st.help.Render("tab select  up/down ±5%  p policy  l loq  t theme  r reset  q quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, graph, st.panel.Render(s.String()))
}
