package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rusenback/nodewatch/internal/engine"
)

// Sampler is the engine as seen by the dashboard
type Sampler interface {
	Due(now time.Time) bool
	Tick(ctx context.Context, now time.Time) (engine.Snapshot, error)
	Snapshot() engine.Snapshot
}

// Options configures the dashboard
type Options struct {
	Target       string
	PollInterval time.Duration
}

// Model represents the TUI application state. It only ever reads
// snapshots; the engine is touched from one command at a time.
type Model struct {
	ctx     context.Context
	sampler Sampler
	opts    Options

	snap     engine.Snapshot
	sampling bool
	fatal    error
	message  string

	width  int
	height int

	logsScroll int

	now func() time.Time
}

// Message types for Bubbletea update loop
type tickMsg time.Time

type sampleMsg struct {
	snap engine.Snapshot
	err  error
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, sampler Sampler, opts Options) Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	return Model{
		ctx:     ctx,
		sampler: sampler,
		opts:    opts,
		snap:    sampler.Snapshot(),
		now:     time.Now,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return tickCmd(m.opts.PollInterval)
}

// Err returns the error that stopped the dashboard, if any
func (m Model) Err() error {
	return m.fatal
}
