package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultSQLiteFile is the database file name inside the data directory
const DefaultSQLiteFile = "metrics.db"

type sqliteDialect struct{}

func (sqliteDialect) name() string { return DriverSQLite }

func (sqliteDialect) placeholder(int) string { return "?" }

func (sqliteDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			timestamp INTEGER PRIMARY KEY,
			cpu_usage REAL,
			memory_usage REAL,
			memory_total INTEGER,
			memory_used INTEGER,
			disk_usage REAL,
			network_received INTEGER,
			network_transmitted INTEGER,
			target_memory INTEGER,
			target_disk_read INTEGER,
			target_disk_write INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS auth_events (
			timestamp INTEGER NOT NULL,
			identifier TEXT NOT NULL,
			status TEXT NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (timestamp, identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_timestamp ON auth_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_seq ON auth_events(seq)`,
	}
}

func (sqliteDialect) compact() []string {
	return []string{"VACUUM", "ANALYZE"}
}

// openSQLite opens a sqlite database. A bare path has its parent
// directory created first.
func openSQLite(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = DefaultSQLiteFile
	}
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection keeps VACUUM and writes off each other's locks
	db.SetMaxOpenConns(1)

	return &Store{db: db, dialect: sqliteDialect{}}, nil
}
