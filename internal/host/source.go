// Package host implements the metric source adapter over Linux procfs and
// statfs. A Source is refreshed once per sampling cycle and then read.
package host

import (
	"context"
	"time"

	"github.com/rusenback/nodewatch/internal/model"
)

// Source returns point-in-time system counters. Refresh may block for the
// settle delay; Read returns the figures gathered by the last Refresh.
type Source interface {
	Refresh(ctx context.Context) error
	Read() model.RawSnapshot
}

// TargetProbe looks up the tracked target by name. A target that does not
// exist is reported with Found=false and no error.
type TargetProbe interface {
	Probe(ctx context.Context, name string, settle time.Duration) (model.ProcessStats, error)
}

// sleepCtx waits for d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
