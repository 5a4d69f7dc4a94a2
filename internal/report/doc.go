// Package report renders results for people: asciigraph charts and
// lipgloss headings for terminals, and the three-panel gonum/plot figure
// (production rates, virus trajectories with synthetic data, and
// log-likelihood slices) for files.
package report
