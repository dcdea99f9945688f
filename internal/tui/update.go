package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/nodewatch/internal/engine"
)

// Update handles messages and updates the model state
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.ScrollUp):
			if m.logsScroll > 0 {
				m.logsScroll--
			}

		case key.Matches(msg, keys.ScrollDown):
			if m.logsScroll < m.calculateMaxScroll() {
				m.logsScroll++
			}

		case key.Matches(msg, keys.GoTop):
			m.logsScroll = 0
		}

	case tickMsg:
		next := tickCmd(m.opts.PollInterval)
		if m.sampling {
			return m, next
		}
		now := time.Time(msg)
		if !m.sampler.Due(now) {
			return m, next
		}
		m.sampling = true
		return m, tea.Batch(sampleCmd(m.ctx, m.sampler, now), next)

	case sampleMsg:
		m.sampling = false
		m.snap = msg.snap
		m.clampScroll()
		if msg.err != nil {
			if engine.IsFatal(msg.err) {
				m.fatal = msg.err
				return m, tea.Quit
			}
			m.message = msg.err.Error()
		} else {
			m.message = ""
		}
	}

	return m, nil
}

func (m *Model) clampScroll() {
	if limit := m.calculateMaxScroll(); m.logsScroll > limit {
		m.logsScroll = limit
	}
}
