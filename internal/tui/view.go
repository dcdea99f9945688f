package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the TUI interface
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	l := m.layout()

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCPUPanel(l.leftWidth, l.chartHeight),
		m.renderMemoryPanel(l.rightWidth, l.chartHeight))
	middleRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderDiskPanel(l.leftWidth, l.chartHeight),
		m.renderNetworkPanel(l.rightWidth, l.chartHeight))
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderLogPanel(l.leftWidth, l.bottomHeight),
		m.renderStatsPanel(l.rightWidth, l.bottomHeight))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		topRow,
		middleRow,
		bottomRow,
		m.renderFooter())
}

func (m Model) renderHeader() string {
	header := headerStyle.Render(" nodewatch ") + " " + titleStyle.Render(m.opts.Target)
	switch {
	case m.sampling:
		header += " " + helpStyle.Render("sampling...")
	case m.message != "":
		header += " " + warnStyle.Render(truncate(m.message, m.width-lipgloss.Width(header)-2))
	}
	return header
}

func (m Model) renderFooter() string {
	var parts []string
	for _, b := range keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, fmt.Sprintf("%s %s", h.Key, h.Desc))
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
