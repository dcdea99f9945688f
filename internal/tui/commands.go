package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// tickCmd creates a command that sends a tick message after d
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// sampleCmd runs one engine cycle off the update loop
func sampleCmd(ctx context.Context, sampler Sampler, now time.Time) tea.Cmd {
	return func() tea.Msg {
		snap, err := sampler.Tick(ctx, now)
		return sampleMsg{snap: snap, err: err}
	}
}
