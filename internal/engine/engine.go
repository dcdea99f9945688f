// Package engine drives sampling, derivation, retention and persistence.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/rusenback/nodewatch/internal/authlog"
	"github.com/rusenback/nodewatch/internal/derive"
	"github.com/rusenback/nodewatch/internal/history"
	"github.com/rusenback/nodewatch/internal/host"
	"github.com/rusenback/nodewatch/internal/model"
	"github.com/rusenback/nodewatch/internal/telemetry"
)

// Defaults
const (
	DefaultInterval     = 2 * time.Second
	DefaultCompactEvery = 21600
)

// Store is the durable side of the engine
type Store interface {
	SaveSample(ctx context.Context, m model.MetricSample) error
	Compact(ctx context.Context) error
	RecentSamples(ctx context.Context, n int) ([]model.MetricSample, error)
	RecentAuthEvents(ctx context.Context, n int) ([]model.AuthEvent, error)
}

// AuthPoller is the event log ingestor
type AuthPoller interface {
	Poll(ctx context.Context) (authlog.PollResult, error)
	Events() []model.AuthEvent
	Restore(events []model.AuthEvent)
	Capacity() int
}

// Publisher receives every newly accepted auth event
type Publisher interface {
	Publish(ev model.AuthEvent, host string) error
}

// Options configures an Engine
type Options struct {
	Source    host.Source
	Store     Store
	Auth      AuthPoller // optional
	Publisher Publisher  // optional
	Metrics   telemetry.Metrics
	Logger    *slog.Logger

	Interval     time.Duration
	WindowSize   int
	CompactEvery int    // ticks between compactions, 0 disables
	DataDir      string // target data directory counted as used disk space
	HostName     string
}

// Engine owns all sampling state. It is not safe for concurrent use; the
// caller runs Due and Tick from one goroutine at a time.
type Engine struct {
	logger    *slog.Logger
	source    host.Source
	store     Store
	auth      AuthPoller
	publisher Publisher
	metrics   telemetry.Metrics

	interval     time.Duration
	compactEvery uint64
	dataDir      string
	hostName     string

	cpu, mem, disk, rx, tx *history.Series
	rxRate, txRate         derive.RateState

	latest    model.MetricSample
	hasSample bool
	cores     int
	diskSpace model.DiskSpace

	anchor    time.Time
	hasAnchor bool
	cycles    uint64
	dirWarned bool

	// newest whole second written to the store
	lastSecond int64
	hasStored  bool

	// Overridable for testing.
	dirSize func(path string) (uint64, error)
}

// New creates an Engine
func New(opts Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: metric source is required")
	}
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.Noop{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.WindowSize <= 0 {
		opts.WindowSize = history.DefaultCapacity
	}
	if opts.CompactEvery < 0 {
		opts.CompactEvery = 0
	}

	return &Engine{
		logger:       opts.Logger,
		source:       opts.Source,
		store:        opts.Store,
		auth:         opts.Auth,
		publisher:    opts.Publisher,
		metrics:      opts.Metrics,
		interval:     opts.Interval,
		compactEvery: uint64(opts.CompactEvery),
		dataDir:      opts.DataDir,
		hostName:     opts.HostName,
		cpu:          history.New(opts.WindowSize),
		mem:          history.New(opts.WindowSize),
		disk:         history.New(opts.WindowSize),
		rx:           history.New(opts.WindowSize),
		tx:           history.New(opts.WindowSize),
		dirSize:      derive.DirSize,
	}, nil
}

// Interval returns the sampling cadence
func (e *Engine) Interval() time.Duration {
	return e.interval
}

// Cycles returns the number of completed ticks
func (e *Engine) Cycles() uint64 {
	return e.cycles
}

// Due reports whether a sampling cycle should run at now. The first call is
// always due. A clock that moved backwards resets the anchor and is not due.
func (e *Engine) Due(now time.Time) bool {
	if !e.hasAnchor {
		return true
	}
	elapsed := now.Round(0).Sub(e.anchor)
	if elapsed < 0 {
		e.metrics.IncCounter(telemetry.ClockAnomaliesTotal, 1)
		e.logger.Warn("clock moved backwards, resetting cadence",
			slog.String("kind", ClockAnomaly.String()),
			slog.Duration("elapsed", elapsed))
		e.anchor = now.Round(0)
		return false
	}
	return elapsed >= e.interval
}

// Tick runs one cycle: sample and persist metrics, poll auth events, then
// count towards compaction. The metric and auth halves run regardless of
// each other's failure; their errors are joined. Use IsFatal on the result.
func (e *Engine) Tick(ctx context.Context, now time.Time) (Snapshot, error) {
	start := time.Now()
	now = now.Round(0)
	e.anchor = now
	e.hasAnchor = true

	var errs []error
	if err := e.sampleMetrics(ctx, now); err != nil {
		e.metrics.IncCounter(telemetry.SampleErrorsTotal, 1)
		e.logStepError(ctx, err)
		errs = append(errs, err)
	}
	if err := e.ingestAuth(ctx); err != nil {
		e.metrics.IncCounter(telemetry.AuthErrorsTotal, 1)
		e.logStepError(ctx, err)
		errs = append(errs, err)
	}

	e.cycles++
	if e.compactEvery > 0 && e.cycles%e.compactEvery == 0 {
		e.compact(ctx)
	}

	e.metrics.ObserveLatency(telemetry.TickLatency, time.Since(start).Seconds())
	return e.Snapshot(), errors.Join(errs...)
}

// logStepError records a failed half of a tick. Only a lost metric write
// is logged as an error; everything else is a warning and the loop goes on.
func (e *Engine) logStepError(ctx context.Context, err error) {
	var te *Error
	if !errors.As(err, &te) {
		e.logger.WarnContext(ctx, "sampling cycle step failed", slog.String("error", err.Error()))
		return
	}
	level := slog.LevelWarn
	if te.Fatal() {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "sampling cycle step failed",
		slog.String("kind", te.Kind.String()),
		slog.String("op", te.Op),
		slog.String("error", te.Err.Error()))
}

func (e *Engine) sampleMetrics(ctx context.Context, now time.Time) error {
	if err := e.source.Refresh(ctx); err != nil {
		return &Error{Kind: SourceUnavailable, Op: OpRefresh, Err: err}
	}
	raw := e.source.Read()

	m := e.derive(raw, now)
	e.cpu.Push(m.Timestamp, m.CPUPercent)
	e.mem.Push(m.Timestamp, m.MemoryPercent)
	e.disk.Push(m.Timestamp, m.DiskPercent)

	rx := e.rxRate.Observe(raw.NetworkReceived, now)
	tx := e.txRate.Observe(raw.NetworkTransmitted, now)
	e.rx.Push(m.Timestamp, rx)
	e.tx.Push(m.Timestamp, tx)

	e.latest = m
	e.hasSample = true
	e.cores = raw.Cores
	if d, ok := raw.FirstDisk(); ok {
		e.diskSpace = d
	}

	e.metrics.SetGauge(telemetry.CPUPercentGauge, m.CPUPercent)
	e.metrics.SetGauge(telemetry.MemoryPercentGauge, m.MemoryPercent)
	e.metrics.SetGauge(telemetry.DiskPercentGauge, m.DiskPercent)
	e.metrics.SetGauge(telemetry.RxRateGauge, rx)
	e.metrics.SetGauge(telemetry.TxRateGauge, tx)

	sec := int64(math.Floor(m.Timestamp))
	if e.hasStored && sec <= e.lastSecond {
		// the store keys samples by second; after a clock step back the
		// sample stays on screen but is not written
		e.metrics.IncCounter(telemetry.ClockAnomaliesTotal, 1)
		e.logger.Warn("sample second already stored, not persisting",
			slog.String("kind", ClockAnomaly.String()),
			slog.Int64("second", sec),
			slog.Int64("stored", e.lastSecond))
		return nil
	}

	if err := e.store.SaveSample(ctx, m); err != nil {
		return &Error{Kind: PersistenceFailure, Op: OpSaveSample, Err: err}
	}
	e.lastSecond = sec
	e.hasStored = true
	e.metrics.IncCounter(telemetry.SamplesTotal, 1)
	return nil
}

// derive computes the persisted sample from a raw snapshot
func (e *Engine) derive(raw model.RawSnapshot, now time.Time) model.MetricSample {
	t := raw.Target
	return model.MetricSample{
		Timestamp:               float64(now.UnixNano()) / float64(time.Second),
		CPUPercent:              derive.CPUPerCore(t.CPUPercent, raw.Cores),
		MemoryPercent:           derive.Percent(float64(t.MemoryBytes), float64(raw.MemoryTotal)),
		MemoryTotalBytes:        raw.MemoryTotal,
		MemoryUsedBytes:         t.MemoryBytes,
		DiskPercent:             e.diskPercent(raw),
		NetworkReceivedBytes:    raw.NetworkReceived,
		NetworkTransmittedBytes: raw.NetworkTransmitted,
		TargetMemoryBytes:       t.MemoryBytes,
		TargetDiskReadBytes:     t.DiskReadBytes,
		TargetDiskWriteBytes:    t.DiskWriteBytes,
	}
}

func (e *Engine) diskPercent(raw model.RawSnapshot) float64 {
	d, ok := raw.FirstDisk()
	if !ok {
		return 0
	}

	var extra uint64
	if e.dataDir != "" {
		size, err := e.dirSize(e.dataDir)
		if err != nil {
			level := slog.LevelWarn
			if e.dirWarned {
				level = slog.LevelDebug
			}
			e.logger.Log(context.Background(), level, "data directory unreadable, counting it as empty",
				slog.String("path", e.dataDir),
				slog.String("error", err.Error()))
			e.dirWarned = true
		}
		extra = size
	}
	return derive.DiskPercent(d.Total, d.Available, extra)
}

func (e *Engine) ingestAuth(ctx context.Context) error {
	if e.auth == nil {
		return nil
	}

	res, err := e.auth.Poll(ctx)
	e.metrics.IncCounter(telemetry.AuthLinesTotal, float64(res.Lines))
	e.metrics.IncCounter(telemetry.AuthEventsTotal, float64(len(res.Accepted)))
	if res.Anomalies > 0 {
		e.metrics.IncCounter(telemetry.AuthAnomaliesTotal, float64(res.Anomalies))
		e.logger.Warn("auth lines without identifier recorded as unknown",
			slog.String("kind", ParseAnomaly.String()),
			slog.Int("count", res.Anomalies))
	}
	e.metrics.SetGauge(telemetry.EventsHeldGauge, float64(len(e.auth.Events())))

	if e.publisher != nil {
		for _, ev := range res.Accepted {
			if perr := e.publisher.Publish(ev, e.hostName); perr != nil {
				e.logger.Warn("failed to publish auth event",
					slog.String("identifier", ev.Identifier),
					slog.String("error", perr.Error()))
			}
		}
	}

	if err != nil {
		kind := SourceUnavailable
		if errors.Is(err, authlog.ErrStore) {
			kind = PersistenceFailure
		}
		return &Error{Kind: kind, Op: OpPollAuth, Err: err}
	}
	return nil
}

// compact is advisory: failure is logged and the loop carries on
func (e *Engine) compact(ctx context.Context) {
	start := time.Now()
	if err := e.store.Compact(ctx); err != nil {
		e.metrics.IncCounter(telemetry.CompactionErrors, 1)
		e.logStepError(ctx, &Error{Kind: PersistenceFailure, Op: OpCompact, Err: err})
		return
	}
	e.metrics.IncCounter(telemetry.CompactionsTotal, 1)
	e.logger.Info("store compacted",
		slog.Uint64("cycle", e.cycles),
		slog.Duration("took", time.Since(start)))
}

// Restore seeds the rolling buffers and the event list from the store.
// Rates are rebuilt from consecutive stored counters; the live rate
// baseline starts fresh so the first live rate is zero. Core count and
// disk size come from one source refresh; if that fails they fill in on
// the first tick.
func (e *Engine) Restore(ctx context.Context) error {
	samples, err := e.store.RecentSamples(ctx, e.cpu.Cap())
	if err != nil {
		return &Error{Kind: PersistenceFailure, Op: OpRestore, Err: err}
	}

	var rxRate, txRate derive.RateState
	for _, m := range samples {
		t := time.Unix(0, int64(m.Timestamp*float64(time.Second)))
		e.cpu.Push(m.Timestamp, m.CPUPercent)
		e.mem.Push(m.Timestamp, m.MemoryPercent)
		e.disk.Push(m.Timestamp, m.DiskPercent)
		e.rx.Push(m.Timestamp, rxRate.Observe(m.NetworkReceivedBytes, t))
		e.tx.Push(m.Timestamp, txRate.Observe(m.NetworkTransmittedBytes, t))
	}
	e.rxRate.Reset()
	e.txRate.Reset()
	if n := len(samples); n > 0 {
		e.latest = samples[n-1]
		e.hasSample = true
		e.lastSecond = int64(math.Floor(e.latest.Timestamp))
		e.hasStored = true
	}

	if e.auth != nil {
		events, err := e.store.RecentAuthEvents(ctx, e.auth.Capacity())
		if err != nil {
			return &Error{Kind: PersistenceFailure, Op: OpRestore, Err: err}
		}
		e.auth.Restore(events)
	}

	if err := e.source.Refresh(ctx); err != nil {
		e.logStepError(ctx, &Error{Kind: SourceUnavailable, Op: OpRefresh, Err: err})
	} else {
		raw := e.source.Read()
		e.cores = raw.Cores
		if d, ok := raw.FirstDisk(); ok {
			e.diskSpace = d
		}
	}

	e.logger.Info("history restored",
		slog.Int("samples", len(samples)),
		slog.Int("window", e.cpu.Len()))
	return nil
}
