package engine

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors
type Kind int

const (
	// SourceUnavailable means the OS metrics or the log source did not respond
	SourceUnavailable Kind = iota + 1
	// PersistenceFailure means a write or compaction failed
	PersistenceFailure
	// ParseAnomaly means a log line matched but had no identifier
	ParseAnomaly
	// ClockAnomaly means the wall clock moved backwards
	ClockAnomaly
)

func (k Kind) String() string {
	switch k {
	case SourceUnavailable:
		return "source_unavailable"
	case PersistenceFailure:
		return "persistence_failure"
	case ParseAnomaly:
		return "parse_anomaly"
	case ClockAnomaly:
		return "clock_anomaly"
	default:
		return "unknown"
	}
}

// Operations named in errors
const (
	OpRefresh    = "refresh metrics"
	OpSaveSample = "save sample"
	OpPollAuth   = "poll auth log"
	OpCompact    = "compact store"
	OpRestore    = "restore history"
)

// Error is a tagged engine error
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether the run must stop. Only a lost metric write is
// fatal: samples are the primary durable output.
func (e *Error) Fatal() bool {
	return e.Kind == PersistenceFailure && e.Op == OpSaveSample
}

// IsFatal reports whether err, or anything joined into it, is fatal
func IsFatal(err error) bool {
	switch x := err.(type) {
	case nil:
		return false
	case *Error:
		return x.Fatal() || IsFatal(x.Err)
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if IsFatal(inner) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsFatal(x.Unwrap())
	}
	return false
}

// KindOf returns the kind of the first tagged error in err's chain
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
