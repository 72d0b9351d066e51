package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-autogain/dsp/effects/dynamics"
	"github.com/cwbudde/algo-autogain/measure/loudness"
)

var (
	primaryColor = lipgloss.Color("#2E86AB")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginTop(1)

	keyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A40000"))
)

// gainStats summarizes a gain trace in dB.
type gainStats struct {
	Min, Max     float64
	Mean, StdDev float64
	Median       float64
}

// summarize computes gain statistics. An empty trace yields zeros.
func summarize(gains []float64) gainStats {
	if len(gains) == 0 {
		return gainStats{}
	}

	sorted := slices.Clone(gains)
	slices.Sort(sorted)

	mean, std := stat.MeanStdDev(gains, nil)
	if len(gains) == 1 {
		std = 0
	}

	return gainStats{
		Min:    floats.Min(gains),
		Max:    floats.Max(gains),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

// formatLUFS prints a loudness value, showing the floor as silence.
func formatLUFS(v float64) string {
	if v <= loudness.Floor {
		return "silence"
	}

	return fmt.Sprintf("%.1f LUFS", v)
}

// writeReport renders the run summary.
func writeReport(w io.Writer, name string, res *result, duration float64) {
	var sb strings.Builder

	row := func(key, value string) {
		sb.WriteString("  ")
		sb.WriteString(keyStyle.Render(key))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}

	sb.WriteString(titleStyle.Render("autogain: " + name))
	sb.WriteString("\n")

	sb.WriteString(sectionStyle.Render("Loudness"))
	sb.WriteString("\n")
	row("Duration", fmt.Sprintf("%.2f s", duration))
	row("Input integrated", formatLUFS(res.inputIntegrated))
	row("Output integrated", formatLUFS(res.outputIntegrated))
	row("Output long (final)", formatLUFS(res.final.OutLong))
	row("Latency", fmt.Sprintf("%d samples", res.latency))

	s := summarize(res.gains)

	sb.WriteString(sectionStyle.Render("Gain"))
	sb.WriteString("\n")
	row("Final", fmt.Sprintf("%+.2f dB", res.final.Gain))
	row("Range", fmt.Sprintf("%+.2f … %+.2f dB", s.Min, s.Max))
	row("Mean ± std", fmt.Sprintf("%+.2f ± %.2f dB", s.Mean, s.StdDev))
	row("Median", fmt.Sprintf("%+.2f dB", s.Median))

	total := 0
	for _, n := range res.states {
		total += n
	}

	if total > 0 {
		sb.WriteString(sectionStyle.Render("Controller"))
		sb.WriteString("\n")

		for _, st := range dynamics.AutoGainStates {
			n := res.states[st.String()]
			row(st.String(), fmt.Sprintf("%5.1f %%", 100*float64(n)/float64(total)))
		}
	}

	fmt.Fprint(w, sb.String())
}

// printError writes a styled error line.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
}
