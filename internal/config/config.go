// Package config loads nodewatch settings from YAML or JSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	LogFile   string          `json:"log_file" yaml:"log_file"`
	DataDir   string          `json:"data_dir" yaml:"data_dir"`
	Sampling  SamplingConfig  `json:"sampling" yaml:"sampling"`
	Target    TargetConfig    `json:"target" yaml:"target"`
	Disk      DiskConfig      `json:"disk" yaml:"disk"`
	AuthLog   AuthLogConfig   `json:"auth_log" yaml:"auth_log"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
	NATS      NATSConfig      `json:"nats" yaml:"nats"`
}

type SamplingConfig struct {
	Interval     time.Duration `json:"interval" yaml:"interval"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	SettleDelay  time.Duration `json:"settle_delay" yaml:"settle_delay"`
	WindowSize   int           `json:"window_size" yaml:"window_size"`
	CompactEvery int           `json:"compact_every" yaml:"compact_every"`
}

type TargetConfig struct {
	Name    string       `json:"name" yaml:"name"`
	Source  string       `json:"source" yaml:"source"` // process | docker
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	Docker  DockerConfig `json:"docker" yaml:"docker"`
}

type DockerConfig struct {
	Host    string        `json:"host" yaml:"host"`
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

type DiskConfig struct {
	MountPaths []string `json:"mount_paths" yaml:"mount_paths"`
}

type AuthLogConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Source         string        `json:"source" yaml:"source"` // journal | file | docker
	Service        string        `json:"service" yaml:"service"`
	Lookback       time.Duration `json:"lookback" yaml:"lookback"`
	MaxLines       int           `json:"max_lines" yaml:"max_lines"`
	FilePath       string        `json:"file_path" yaml:"file_path"`
	MaxEvents      int           `json:"max_events" yaml:"max_events"`
	FailureMarkers []string      `json:"failure_markers" yaml:"failure_markers"`
	SuccessMarkers []string      `json:"success_markers" yaml:"success_markers"`
}

type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

type TelemetryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type NATSConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	URL     string `json:"url" yaml:"url"`
	Subject string `json:"subject" yaml:"subject"`
}

// Target and auth sources
const (
	TargetProcess = "process"
	TargetDocker  = "docker"

	AuthJournal = "journal"
	AuthFile    = "file"
	AuthDocker  = "docker"
)

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		DataDir:  "~/.nodewatch",
		Sampling: SamplingConfig{
			Interval:     2 * time.Second,
			PollInterval: 250 * time.Millisecond,
			SettleDelay:  200 * time.Millisecond,
			WindowSize:   100,
			CompactEvery: 21600,
		},
		Target: TargetConfig{
			Name:    "kaspad",
			Source:  TargetProcess,
			DataDir: "~/.kaspa",
			Docker:  DockerConfig{Timeout: 5 * time.Second},
		},
		Disk: DiskConfig{MountPaths: []string{"/"}},
		AuthLog: AuthLogConfig{
			Enabled:   true,
			Source:    AuthJournal,
			Service:   "ssh",
			Lookback:  60 * time.Second,
			MaxLines:  50,
			FilePath:  "/var/log/auth.log",
			MaxEvents: 1000,
		},
		Storage:   StorageConfig{Driver: "sqlite"},
		Telemetry: TelemetryConfig{Enabled: false, Addr: "127.0.0.1:9465"},
		NATS:      NATSConfig{Enabled: false, URL: "nats://127.0.0.1:4222", Subject: "nodewatch.auth.events"},
	}
}

// Load reads path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		applyDefaults(cfg)
		return cfg, Validate(cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, decodeErr)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	d := DefaultConfig()
	if cfg.LogLevel == "" {
		cfg.LogLevel = d.LogLevel
	}
	if cfg.DataDir == "" {
		cfg.DataDir = d.DataDir
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "nodewatch.log")
	}
	cfg.LogFile = expandHome(cfg.LogFile)

	if cfg.Sampling.Interval <= 0 {
		cfg.Sampling.Interval = d.Sampling.Interval
	}
	if cfg.Sampling.PollInterval <= 0 {
		cfg.Sampling.PollInterval = d.Sampling.PollInterval
	}
	if cfg.Sampling.SettleDelay < 0 {
		cfg.Sampling.SettleDelay = 0
	}
	if cfg.Sampling.WindowSize <= 0 {
		cfg.Sampling.WindowSize = d.Sampling.WindowSize
	}
	if cfg.Sampling.CompactEvery < 0 {
		cfg.Sampling.CompactEvery = 0
	}

	if cfg.Target.Source == "" {
		cfg.Target.Source = d.Target.Source
	}
	cfg.Target.DataDir = expandHome(cfg.Target.DataDir)
	if cfg.Target.Docker.Timeout <= 0 {
		cfg.Target.Docker.Timeout = d.Target.Docker.Timeout
	}
	if len(cfg.Disk.MountPaths) == 0 {
		cfg.Disk.MountPaths = d.Disk.MountPaths
	}

	if cfg.AuthLog.Source == "" {
		cfg.AuthLog.Source = d.AuthLog.Source
	}
	if cfg.AuthLog.Service == "" {
		cfg.AuthLog.Service = d.AuthLog.Service
	}
	if cfg.AuthLog.Lookback <= 0 {
		cfg.AuthLog.Lookback = d.AuthLog.Lookback
	}
	if cfg.AuthLog.MaxLines <= 0 {
		cfg.AuthLog.MaxLines = d.AuthLog.MaxLines
	}
	if cfg.AuthLog.MaxEvents <= 0 {
		cfg.AuthLog.MaxEvents = d.AuthLog.MaxEvents
	}
	if cfg.AuthLog.FilePath == "" {
		cfg.AuthLog.FilePath = d.AuthLog.FilePath
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = d.Storage.Driver
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	if cfg.Storage.DSN == "" && cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DSN = filepath.Join(cfg.DataDir, "metrics.db")
	}

	if cfg.Telemetry.Addr == "" {
		cfg.Telemetry.Addr = d.Telemetry.Addr
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = d.NATS.URL
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = d.NATS.Subject
	}
}

func Validate(cfg *Config) error {
	// samples are stored one row per second
	if cfg.Sampling.Interval < time.Second {
		return errors.New("sampling.interval must be at least 1s")
	}
	if cfg.Sampling.Interval < cfg.Sampling.PollInterval {
		return errors.New("sampling.interval must not be shorter than sampling.poll_interval")
	}
	if cfg.Sampling.SettleDelay >= cfg.Sampling.Interval {
		return errors.New("sampling.settle_delay must be shorter than sampling.interval")
	}
	switch cfg.Target.Source {
	case TargetProcess, TargetDocker:
	default:
		return fmt.Errorf("target.source must be %q or %q", TargetProcess, TargetDocker)
	}
	switch cfg.AuthLog.Source {
	case AuthJournal, AuthFile, AuthDocker:
	default:
		return fmt.Errorf("auth_log.source must be %q, %q or %q", AuthJournal, AuthFile, AuthDocker)
	}
	if cfg.AuthLog.Enabled && cfg.AuthLog.Source == AuthDocker && cfg.Target.Source != TargetDocker {
		return errors.New("auth_log.source docker requires target.source docker")
	}
	switch cfg.Storage.Driver {
	case "sqlite":
	case "postgres", "postgresql":
		if cfg.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported storage.driver %q", cfg.Storage.Driver)
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.Addr == "" {
		return errors.New("telemetry.addr is required when telemetry is enabled")
	}
	if cfg.NATS.Enabled && cfg.NATS.URL == "" {
		return errors.New("nats.url is required when nats is enabled")
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "/root"
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
