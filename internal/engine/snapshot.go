package engine

import (
	"time"

	"github.com/rusenback/nodewatch/internal/model"
)

// Snapshot is a read-only copy of everything the dashboard draws
type Snapshot struct {
	CPU     []model.Point // target CPU, % of machine
	Memory  []model.Point // target memory, % of total
	Disk    []model.Point // used disk, %
	Receive []model.Point // MiB/s
	Send    []model.Point // MiB/s

	Events []model.AuthEvent // oldest first

	ReceiveRate float64 // newest MiB/s, 0 before the first sample
	SendRate    float64
	WindowStart float64 // unix seconds of the oldest point held
	WindowEnd   float64

	Latest    model.MetricSample
	HasSample bool
	Cores     int
	DiskSpace model.DiskSpace
	Cycles    uint64
	Interval  time.Duration
}

// Snapshot copies the current state
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		CPU:       e.cpu.Points(),
		Memory:    e.mem.Points(),
		Disk:      e.disk.Points(),
		Receive:   e.rx.Points(),
		Send:      e.tx.Points(),
		Latest:    e.latest,
		HasSample: e.hasSample,
		Cores:     e.cores,
		DiskSpace: e.diskSpace,
		Cycles:    e.cycles,
		Interval:  e.interval,
	}
	s.ReceiveRate, _ = e.rx.Latest()
	s.SendRate, _ = e.tx.Latest()
	s.WindowStart, _ = e.cpu.First()
	s.WindowEnd, _ = e.cpu.Last()
	if e.auth != nil {
		s.Events = e.auth.Events()
	}
	return s
}

// Window returns the time covered by the chart points
func (s Snapshot) Window() time.Duration {
	return time.Duration((s.WindowEnd - s.WindowStart) * float64(time.Second))
}
