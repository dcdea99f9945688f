// Package storage persists metric samples and auth events.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rusenback/nodewatch/internal/model"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned for unknown driver names
var ErrUnsupportedDriver = errors.New("unsupported storage driver")

// dialect holds the per-driver SQL
type dialect interface {
	name() string
	schema() []string
	compact() []string
	// placeholder returns the n-th (1-based) bind parameter
	placeholder(n int) string
}

// Store is the durable record of samples and events. It is used from a
// single goroutine; the engine serialises all writes.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open opens a store for driver with dsn and creates the schema
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	var (
		s   *Store
		err error
	)
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		s, err = openSQLite(dsn)
	case DriverPostgres, "postgresql":
		s, err = openPostgres(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := s.Init(ctx); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing handle. The schema is not created.
func NewWithDB(db *sql.DB, driver string) (*Store, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite:
		return &Store{db: db, dialect: sqliteDialect{}}, nil
	case DriverPostgres, "postgresql":
		return &Store{db: db, dialect: postgresDialect{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
}

// Driver returns the dialect name
func (s *Store) Driver() string {
	return s.dialect.name()
}

// Init creates tables and indexes if they do not exist
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for the dialect
func (s *Store) rebind(query string) string {
	if s.dialect.placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveSample inserts one row keyed by the whole second of the sample.
// A second sample in the same second violates the key and fails.
func (s *Store) SaveSample(ctx context.Context, m model.MetricSample) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO metrics (
			timestamp, cpu_usage, memory_usage, memory_total, memory_used,
			disk_usage, network_received, network_transmitted,
			target_memory, target_disk_read, target_disk_write
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		int64(math.Floor(m.Timestamp)),
		m.CPUPercent,
		m.MemoryPercent,
		toInt64(m.MemoryTotalBytes),
		toInt64(m.MemoryUsedBytes),
		m.DiskPercent,
		toInt64(m.NetworkReceivedBytes),
		toInt64(m.NetworkTransmittedBytes),
		toInt64(m.TargetMemoryBytes),
		toInt64(m.TargetDiskReadBytes),
		toInt64(m.TargetDiskWriteBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}
	return nil
}

// SaveAuthEvent inserts ev unless (timestamp, identifier) already exists.
// It reports whether a row was written. seq numbers rows in arrival order
// so events within one second restore in the order they were logged.
func (s *Store) SaveAuthEvent(ctx context.Context, ev model.AuthEvent) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO auth_events (timestamp, identifier, status, seq)
		VALUES (?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM auth_events))
		ON CONFLICT (timestamp, identifier) DO NOTHING`),
		ev.Timestamp, ev.Identifier, string(ev.Status),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert auth event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Compact reclaims space and refreshes planner statistics. Callers treat
// failure as advisory.
func (s *Store) Compact(ctx context.Context) error {
	for _, stmt := range s.dialect.compact() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("compaction %q failed: %w", stmt, err)
		}
	}
	return nil
}

// RecentSamples returns up to n most recent samples, oldest first
func (s *Store) RecentSamples(ctx context.Context, n int) ([]model.MetricSample, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT timestamp, cpu_usage, memory_usage, memory_total, memory_used,
			disk_usage, network_received, network_transmitted,
			target_memory, target_disk_read, target_disk_write
		FROM metrics
		ORDER BY timestamp DESC
		LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []model.MetricSample
	for rows.Next() {
		var (
			ts                               int64
			memTotal, memUsed, rx, tx        int64
			targetMem, targetRead, targetWri int64
			m                                model.MetricSample
		)
		if err := rows.Scan(&ts, &m.CPUPercent, &m.MemoryPercent, &memTotal, &memUsed,
			&m.DiskPercent, &rx, &tx, &targetMem, &targetRead, &targetWri); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		m.Timestamp = float64(ts)
		m.MemoryTotalBytes = toUint64(memTotal)
		m.MemoryUsedBytes = toUint64(memUsed)
		m.NetworkReceivedBytes = toUint64(rx)
		m.NetworkTransmittedBytes = toUint64(tx)
		m.TargetMemoryBytes = toUint64(targetMem)
		m.TargetDiskReadBytes = toUint64(targetRead)
		m.TargetDiskWriteBytes = toUint64(targetWri)
		samples = append(samples, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(samples)
	return samples, nil
}

// RecentAuthEvents returns up to n most recent events, oldest first
func (s *Store) RecentAuthEvents(ctx context.Context, n int) ([]model.AuthEvent, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT timestamp, identifier, status
		FROM auth_events
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("failed to query auth events: %w", err)
	}
	defer rows.Close()

	var events []model.AuthEvent
	for rows.Next() {
		var (
			ev     model.AuthEvent
			status string
		)
		if err := rows.Scan(&ev.Timestamp, &ev.Identifier, &status); err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		ev.Status = model.ParseAuthStatus(status)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverse(events)
	return events, nil
}

// CountSamples returns the number of stored samples
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	return s.count(ctx, "metrics")
}

// CountAuthEvents returns the number of stored auth events
func (s *Store) CountAuthEvents(ctx context.Context) (int64, error) {
	return s.count(ctx, "auth_events")
}

func (s *Store) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Counters are unsigned but both engines store signed 64-bit integers.
func toInt64(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

func toUint64(v int64) uint64 {
	if v < 0 {
		return 0
	}
	return uint64(v)
}

func reverse[T any](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func dollar(n int) string {
	return "$" + strconv.Itoa(n)
}
