package storage

import (
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type postgresDialect struct{}

func (postgresDialect) name() string { return DriverPostgres }

func (postgresDialect) placeholder(n int) string { return dollar(n) }

func (postgresDialect) schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS metrics (
			timestamp BIGINT PRIMARY KEY,
			cpu_usage DOUBLE PRECISION,
			memory_usage DOUBLE PRECISION,
			memory_total BIGINT,
			memory_used BIGINT,
			disk_usage DOUBLE PRECISION,
			network_received BIGINT,
			network_transmitted BIGINT,
			target_memory BIGINT,
			target_disk_read BIGINT,
			target_disk_write BIGINT
		)`,
		`CREATE TABLE IF NOT EXISTS auth_events (
			timestamp BIGINT NOT NULL,
			identifier TEXT NOT NULL,
			status TEXT NOT NULL,
			seq BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (timestamp, identifier)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_metrics_timestamp ON metrics(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_timestamp ON auth_events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_auth_events_seq ON auth_events(seq)`,
	}
}

func (postgresDialect) compact() []string {
	return []string{"VACUUM ANALYZE"}
}

func openPostgres(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/nodewatch?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: postgresDialect{}}, nil
}
