package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rusenback/nodewatch/internal/model"
)

var timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

// formatAge renders how long ago an event happened
func formatAge(d time.Duration) string {
	secs := int64(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	default:
		return fmt.Sprintf("%dh ago", secs/3600)
	}
}

// styleAuthEvent renders one event: age, identifier and status colored by outcome
func styleAuthEvent(ev model.AuthEvent, now time.Time, maxWidth int) string {
	age := "[" + formatAge(now.Sub(ev.Time())) + "]"
	text := fmt.Sprintf("%s: %s", ev.Identifier, ev.Status)

	if room := maxWidth - len(age) - 1; room > 0 && len(text) > room {
		text = truncate(text, room)
	}

	style := successStyle
	if ev.Failed() {
		style = failedStyle
	}
	return timestampStyle.Render(age) + " " + style.Render(text)
}

// visibleEvents returns up to n events newest first, skipping the first
// scroll of them
func visibleEvents(events []model.AuthEvent, scroll, n int) []model.AuthEvent {
	var out []model.AuthEvent
	for i := len(events) - 1 - scroll; i >= 0 && len(out) < n; i-- {
		out = append(out, events[i])
	}
	return out
}

// renderLogContent renders the event list for the log panel
func (m Model) renderLogContent(width, lines int) string {
	var s strings.Builder

	title := fmt.Sprintf("SSH Logins (%d)", len(m.snap.Events))
	if m.logsScroll > 0 {
		title += fmt.Sprintf(" ↓%d", m.logsScroll)
	}
	s.WriteString(titleStyle.Render(title) + "\n")

	if len(m.snap.Events) == 0 {
		s.WriteString(helpStyle.Render("No authentication attempts seen yet"))
		return s.String()
	}

	now := m.now()
	rows := make([]string, 0, lines)
	for _, ev := range visibleEvents(m.snap.Events, m.logsScroll, lines) {
		rows = append(rows, styleAuthEvent(ev, now, width))
	}
	s.WriteString(strings.Join(rows, "\n"))
	return s.String()
}
