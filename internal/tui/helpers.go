package tui

// truncate shortens a string to a maximum length
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 0 {
		return ""
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// layout splits the terminal into the chart grid and the bottom row
type layout struct {
	leftWidth, rightWidth int
	chartHeight           int // each of the two chart rows
	bottomHeight          int
}

func (m Model) layout() layout {
	width, height := m.width, m.height
	if width < 40 {
		width = 40
	}
	if height < 20 {
		height = 20
	}

	// header and footer take one line each
	body := height - 2
	chartHeight := body * 35 / 100

	leftWidth := width / 2
	return layout{
		leftWidth:    leftWidth,
		rightWidth:   width - leftWidth,
		chartHeight:  chartHeight,
		bottomHeight: body - 2*chartHeight,
	}
}

// calculateVisibleLogLines calculates how many events fit in the log panel
func (m Model) calculateVisibleLogLines() int {
	// border and title; must match renderLogPanel
	visible := m.layout().bottomHeight - 3
	if visible < 1 {
		visible = 1
	}
	return visible
}

// calculateMaxScroll calculates the maximum scroll position
func (m Model) calculateMaxScroll() int {
	maxScroll := len(m.snap.Events) - m.calculateVisibleLogLines()
	if maxScroll < 0 {
		maxScroll = 0
	}
	return maxScroll
}
