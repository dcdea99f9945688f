package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/nodewatch/internal/engine"
)

// renderBar draws a percentage bar of the given length
func renderBar(percent float64, length int) string {
	if length < 1 {
		return ""
	}
	filled := int(percent / 100 * float64(length))
	if filled > length {
		filled = length
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("─", length-filled)
}

// colorize picks green, orange or red by load
func colorize(percent float64, text string) string {
	var color string
	switch {
	case percent > 80:
		color = "#F38BA8"
	case percent > 50:
		color = "#FAB387"
	default:
		color = "#A6E3A1"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(text)
}

// formatBytes renders a byte count in binary units
func formatBytes(b uint64) string {
	const unit = 1024
	switch {
	case b >= unit*unit*unit*unit:
		return fmt.Sprintf("%.2f TiB", float64(b)/(unit*unit*unit*unit))
	case b >= unit*unit*unit:
		return fmt.Sprintf("%.2f GiB", float64(b)/(unit*unit*unit))
	case b >= unit*unit:
		return fmt.Sprintf("%.2f MiB", float64(b)/(unit*unit))
	case b >= unit:
		return fmt.Sprintf("%.2f KiB", float64(b)/unit)
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// renderStatsContent renders the latest sample as labelled bars
func renderStatsContent(snap engine.Snapshot, target string, width int) string {
	title := titleStyle.Render("Target: " + target)
	if !snap.HasSample {
		return title + "\n" + helpStyle.Render("Collecting first sample...")
	}

	m := snap.Latest
	barLength := width - 22
	if barLength > 30 {
		barLength = 30
	}
	if barLength < 5 {
		barLength = 5
	}

	cpu := fmt.Sprintf("CPU  %6.2f%% |%s|", m.CPUPercent, renderBar(m.CPUPercent, barLength))
	mem := fmt.Sprintf("MEM  %6.2f%% |%s|", m.MemoryPercent, renderBar(m.MemoryPercent, barLength))
	disk := fmt.Sprintf("DISK %6.2f%% |%s|", m.DiskPercent, renderBar(m.DiskPercent, barLength))

	lines := []string{
		title,
		colorize(m.CPUPercent, cpu),
		helpStyle.Render(fmt.Sprintf("     of %d cores", snap.Cores)),
		colorize(m.MemoryPercent, mem),
		helpStyle.Render(fmt.Sprintf("     %s / %s", formatBytes(m.TargetMemoryBytes), formatBytes(m.MemoryTotalBytes))),
		colorize(m.DiskPercent, disk),
	}
	if snap.DiskSpace.Total > 0 {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("     %s free of %s on %s",
			formatBytes(snap.DiskSpace.Available), formatBytes(snap.DiskSpace.Total), snap.DiskSpace.MountPath)))
	}
	lines = append(lines,
		rxGraphStyle.Render(fmt.Sprintf("NET  ↓ %.2f MiB/s  ↑ %.2f MiB/s",
			snap.ReceiveRate, snap.SendRate)),
		overlapStyle.Render(fmt.Sprintf("I/O  read %s  write %s",
			formatBytes(m.TargetDiskReadBytes), formatBytes(m.TargetDiskWriteBytes))),
		helpStyle.Render(fmt.Sprintf("%d samples, %s shown", snap.Cycles, snap.Window())),
	)

	for i, l := range lines {
		if lipgloss.Width(l) > width {
			lines[i] = truncateStyled(l, width)
		}
	}
	return strings.Join(lines, "\n")
}

// truncateStyled truncates a styled string to a maximum visible width
func truncateStyled(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(maxWidth).Render(s)
}
