// Package authlog turns SSH authentication log lines into AuthEvents.
package authlog

import (
	"context"
	"errors"
	"time"
)

// Source returns recent log lines for a service
type Source interface {
	Recent(ctx context.Context, service string, lookback time.Duration, limit int) ([]string, error)
}

var (
	// ErrSourceUnavailable wraps any failure to obtain log lines
	ErrSourceUnavailable = errors.New("auth log source unavailable")

	// ErrStore wraps any failure to persist an event
	ErrStore = errors.New("auth event store failed")
)
