package authlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rusenback/nodewatch/internal/model"
)

// DefaultMaxEvents caps the in-memory event list
const DefaultMaxEvents = 1000

// EventStore persists events with insert-or-ignore semantics keyed on
// (timestamp, identifier). It reports whether a new row was written.
type EventStore interface {
	SaveAuthEvent(ctx context.Context, ev model.AuthEvent) (bool, error)
}

// Config configures an Ingestor
type Config struct {
	Service   string
	Lookback  time.Duration
	MaxLines  int
	MaxEvents int
}

// PollResult summarises one poll
type PollResult struct {
	Lines     int
	Matched   int
	Accepted  []model.AuthEvent
	Anomalies int // matched lines without an identifier
}

// Ingestor polls a log source, persists new events and keeps a bounded
// in-memory list of them. Deduplication is the store's primary key: two
// attempts from one address within the same second collapse into one row.
type Ingestor struct {
	logger *slog.Logger
	source Source
	store  EventStore
	parser *Parser
	cfg    Config

	events []model.AuthEvent

	// Overridable for testing.
	now func() time.Time
}

// NewIngestor creates an Ingestor. If logger is nil, a no-op logger is used.
func NewIngestor(source Source, store EventStore, parser *Parser, cfg Config, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if parser == nil {
		parser = NewParser(nil, nil)
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = DefaultMaxEvents
	}
	return &Ingestor{
		logger: logger,
		source: source,
		store:  store,
		parser: parser,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Poll fetches recent lines and ingests the matching ones. An unavailable
// source yields no events and an error wrapping ErrSourceUnavailable; a
// store failure stops the poll and wraps ErrStore.
func (in *Ingestor) Poll(ctx context.Context) (PollResult, error) {
	var res PollResult

	lines, err := in.source.Recent(ctx, in.cfg.Service, in.cfg.Lookback, in.cfg.MaxLines)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	res.Lines = len(lines)

	// the line's own timestamp is not parsed; every match is stamped now
	ts := in.now().Unix()

	for _, line := range lines {
		m, ok := in.parser.Parse(line)
		if !ok {
			continue
		}
		res.Matched++
		if m.Anomaly {
			res.Anomalies++
			in.logger.Debug("auth line without identifier", "line", line)
		}

		ev := model.AuthEvent{Timestamp: ts, Identifier: m.Identifier, Status: m.Status}
		inserted, err := in.store.SaveAuthEvent(ctx, ev)
		if err != nil {
			in.append(res.Accepted)
			return res, fmt.Errorf("%w: %w", ErrStore, err)
		}
		if inserted {
			res.Accepted = append(res.Accepted, ev)
		}
	}

	in.append(res.Accepted)
	return res, nil
}

// append adds events and trims the oldest beyond MaxEvents
func (in *Ingestor) append(events []model.AuthEvent) {
	in.events = append(in.events, events...)
	if over := len(in.events) - in.cfg.MaxEvents; over > 0 {
		in.events = append(in.events[:0:0], in.events[over:]...)
	}
}

// Restore seeds the in-memory list, oldest first, e.g. from the store on startup
func (in *Ingestor) Restore(events []model.AuthEvent) {
	in.events = nil
	in.append(events)
}

// Events returns a copy of the in-memory list, oldest first
func (in *Ingestor) Events() []model.AuthEvent {
	out := make([]model.AuthEvent, len(in.events))
	copy(out, in.events)
	return out
}

// Capacity returns the in-memory bound
func (in *Ingestor) Capacity() int {
	return in.cfg.MaxEvents
}

// Len returns the number of events held in memory
func (in *Ingestor) Len() int {
	return len(in.events)
}
