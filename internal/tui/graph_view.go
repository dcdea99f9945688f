package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/nodewatch/internal/model"
)

var (
	graphAxisStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	cpuGraphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#89DCEB"))
	memGraphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	diskGraphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	rxGraphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA"))
	txGraphStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	overlapStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBA6F7"))
)

// yLabelWidth is the width of the axis labels including the trailing space
const yLabelWidth = 6

// chartSeries is one line of a chart
type chartSeries struct {
	label  string
	unit   string
	points []model.Point
	style  lipgloss.Style
}

func (s chartSeries) current() float64 {
	if len(s.points) == 0 {
		return 0
	}
	return s.points[len(s.points)-1].Y
}

// autoScale returns a y maximum that fits every series. An all-zero chart
// still gets a usable axis.
func autoScale(series []chartSeries) float64 {
	max := 0.0
	for _, s := range series {
		for _, p := range s.points {
			if p.Y > max {
				max = p.Y
			}
		}
	}
	if max <= 0 {
		return 1
	}
	return max
}

// renderChart draws up to two series as filled columns. yMax <= 0 scales
// the axis to the data.
func renderChart(series []chartSeries, width, height int, yMax float64, interval time.Duration) string {
	var s strings.Builder

	if len(series) == 0 || len(series[0].points) == 0 {
		return graphAxisStyle.Render("Waiting for data...")
	}
	if yMax <= 0 {
		yMax = autoScale(series)
	}
	if height < 2 {
		height = 2
	}

	// Legend
	var legend []string
	for _, sr := range series {
		legend = append(legend, sr.style.Render("█")+" "+sr.label+": "+
			sr.style.Render(fmt.Sprintf("%s%s", formatAxis(sr.current()), sr.unit)))
	}
	if len(series) > 1 {
		legend = append(legend, overlapStyle.Render("█")+" Both")
	}
	s.WriteString(strings.Join(legend, "  ") + "\n")

	// Limit data points to available width (leave room for Y-axis labels)
	maxWidth := width - yLabelWidth - 1
	if maxWidth < 10 {
		maxWidth = 10
	}
	columns := make([][]float64, len(series))
	for i, sr := range series {
		values := make([]float64, len(sr.points))
		for j, p := range sr.points {
			values[j] = p.Y
		}
		if len(values) > maxWidth {
			values = values[len(values)-maxWidth:]
		}
		columns[i] = values
	}
	dataPoints := len(columns[0])

	// Render the vertical graph (top to bottom)
	for row := height; row >= 1; row-- {
		var line strings.Builder

		isGridLine := row == height || row == (height+1)/2

		switch {
		case row == height:
			line.WriteString(graphAxisStyle.Render(fmt.Sprintf("%5s ", formatAxis(yMax))))
		case row == (height+1)/2:
			line.WriteString(graphAxisStyle.Render(fmt.Sprintf("%5s ", formatAxis(yMax/2))))
		case row == 1:
			line.WriteString(graphAxisStyle.Render(fmt.Sprintf("%5s ", "0")))
		default:
			line.WriteString(strings.Repeat(" ", yLabelWidth))
		}

		line.WriteString(graphAxisStyle.Render("│"))

		// a cell is filled when the value reaches the middle of its row
		threshold := (float64(row) - 0.5) / float64(height) * yMax

		for i := 0; i < dataPoints; i++ {
			first := columns[0][i] >= threshold
			second := len(columns) > 1 && i < len(columns[1]) && columns[1][i] >= threshold

			switch {
			case first && second:
				line.WriteString(overlapStyle.Render("█"))
			case first:
				line.WriteString(series[0].style.Render("█"))
			case second:
				line.WriteString(series[1].style.Render("█"))
			case isGridLine:
				line.WriteString(graphAxisStyle.Render("·"))
			default:
				line.WriteString(" ")
			}
		}

		s.WriteString(line.String() + "\n")
	}

	// X-axis
	axisLength := dataPoints
	if axisLength < 1 {
		axisLength = 1
	}
	s.WriteString(strings.Repeat(" ", yLabelWidth) +
		graphAxisStyle.Render("└"+strings.Repeat("─", axisLength)) + "\n")
	s.WriteString(renderTimeLabels(axisLength, dataPoints, interval))

	return s.String()
}

// formatAxis keeps labels within five columns
func formatAxis(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.0fk", v/1000)
	case v >= 100:
		return fmt.Sprintf("%.0f", v)
	case v >= 10:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// renderTimeLabels creates time markers along the X-axis
func renderTimeLabels(axisLength, dataPoints int, interval time.Duration) string {
	step := int(interval / time.Second)
	if step < 1 {
		step = 1
	}
	totalSeconds := dataPoints * step

	if axisLength < 20 {
		// Too narrow for labels
		return graphAxisStyle.Render(fmt.Sprintf("%s%s → now", strings.Repeat(" ", yLabelWidth), formatAgo(totalSeconds)))
	}

	numMarkers := 3
	if axisLength >= 50 {
		numMarkers = 5
	}

	type marker struct {
		position int
		label    string
	}
	markers := make([]marker, numMarkers)

	for i := 0; i < numMarkers; i++ {
		position := (i * axisLength) / (numMarkers - 1)
		if i == numMarkers-1 {
			position = axisLength - 1
		}

		// leftmost is oldest
		dataPointIndex := (position * dataPoints) / axisLength
		secondsAgo := totalSeconds - (dataPointIndex * step)

		label := formatAgo(secondsAgo)
		if i == numMarkers-1 {
			label = "now"
		}
		markers[i] = marker{position: position, label: label}
	}

	var s strings.Builder
	s.WriteString(strings.Repeat(" ", yLabelWidth+1))

	currentCol := 0
	for _, m := range markers {
		labelStart := m.position - len(m.label)/2
		if labelStart < currentCol {
			labelStart = currentCol
		}
		if spaces := labelStart - currentCol; spaces > 0 {
			s.WriteString(strings.Repeat(" ", spaces))
		}
		s.WriteString(m.label)
		currentCol = labelStart + len(m.label) + 1
		s.WriteString(" ")
	}

	return graphAxisStyle.Render(strings.TrimRight(s.String(), " "))
}

func formatAgo(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh", seconds/3600)
	default:
		return fmt.Sprintf("%dd", seconds/86400)
	}
}
