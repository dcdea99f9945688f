package tui

import "fmt"

// renderPanel wraps content in the bordered panel style at an exact size
func renderPanel(content string, width, height int) string {
	return panelStyle.
		Width(width - 2).
		Height(height - 2).
		MaxHeight(height).
		Render(content)
}

// innerWidth is the usable width inside a panel
func innerWidth(width int) int {
	// border and horizontal padding
	w := width - 4
	if w < 1 {
		w = 1
	}
	return w
}

// renderChartPanel renders a titled chart. yMax <= 0 auto-scales.
func (m Model) renderChartPanel(title string, series []chartSeries, yMax float64, width, height int) string {
	// border, title, legend, x-axis and time labels
	graphHeight := height - 2 - 4
	chart := renderChart(series, innerWidth(width), graphHeight, yMax, m.snap.Interval)
	return renderPanel(titleStyle.Render(title)+"\n"+chart, width, height)
}

func (m Model) renderCPUPanel(width, height int) string {
	title := fmt.Sprintf("%s CPU (%.1f%%) - %d Cores", m.opts.Target, m.snap.Latest.CPUPercent, m.snap.Cores)
	return m.renderChartPanel(title, []chartSeries{
		{label: "CPU", unit: "%", points: m.snap.CPU, style: cpuGraphStyle},
	}, 100, width, height)
}

func (m Model) renderMemoryPanel(width, height int) string {
	title := fmt.Sprintf("Memory (%s of %s)",
		formatBytes(m.snap.Latest.TargetMemoryBytes), formatBytes(m.snap.Latest.MemoryTotalBytes))
	return m.renderChartPanel(title, []chartSeries{
		{label: "MEM", unit: "%", points: m.snap.Memory, style: memGraphStyle},
	}, 100, width, height)
}

func (m Model) renderDiskPanel(width, height int) string {
	title := fmt.Sprintf("Disk (%.1f%%)", m.snap.Latest.DiskPercent)
	return m.renderChartPanel(title, []chartSeries{
		{label: "DISK", unit: "%", points: m.snap.Disk, style: diskGraphStyle},
	}, 100, width, height)
}

func (m Model) renderNetworkPanel(width, height int) string {
	return m.renderChartPanel("Network (MiB/s)", []chartSeries{
		{label: "RX", points: m.snap.Receive, style: rxGraphStyle},
		{label: "TX", points: m.snap.Send, style: txGraphStyle},
	}, 0, width, height)
}

func (m Model) renderLogPanel(width, height int) string {
	return renderPanel(m.renderLogContent(innerWidth(width), m.calculateVisibleLogLines()), width, height)
}

func (m Model) renderStatsPanel(width, height int) string {
	return renderPanel(renderStatsContent(m.snap, m.opts.Target, innerWidth(width)), width, height)
}
