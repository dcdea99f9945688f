package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rusenback/nodewatch/internal/authlog"
	"github.com/rusenback/nodewatch/internal/bus"
	"github.com/rusenback/nodewatch/internal/config"
	"github.com/rusenback/nodewatch/internal/docker"
	"github.com/rusenback/nodewatch/internal/engine"
	"github.com/rusenback/nodewatch/internal/host"
	"github.com/rusenback/nodewatch/internal/logging"
	"github.com/rusenback/nodewatch/internal/storage"
	"github.com/rusenback/nodewatch/internal/telemetry"
	"github.com/rusenback/nodewatch/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "nodewatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML or JSON config file")
	dsn := flag.String("db", "", "database DSN, overrides storage.dsn")
	target := flag.String("target", "", "process or container to track, overrides target.name")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if *target != "" {
		cfg.Target.Name = *target
	}

	logger, logFile, err := logging.OpenFile(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	var dockerClient *docker.Client
	if cfg.Target.Source == config.TargetDocker {
		dc := docker.DefaultConfig()
		if cfg.Target.Docker.Host != "" {
			dc.Host = cfg.Target.Docker.Host
		}
		dc.Timeout = cfg.Target.Docker.Timeout
		dockerClient, err = docker.NewClient(dc)
		if err != nil {
			return fmt.Errorf("failed to connect to Docker: %w", err)
		}
		defer dockerClient.Close()
	}

	var probe host.TargetProbe
	if cfg.Target.Name != "" {
		if dockerClient != nil {
			probe = dockerClient
		} else {
			probe = host.NewProcProbe("")
		}
	}
	source := host.NewProcSource(host.ProcConfig{
		MountPaths: cfg.Disk.MountPaths,
		Target:     cfg.Target.Name,
		Settle:     cfg.Sampling.SettleDelay,
	}, probe, logger)

	metrics := telemetry.Metrics(telemetry.Noop{})
	if cfg.Telemetry.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		obs, err := telemetry.NewPromObs(reg)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		metrics = obs

		srv := telemetry.NewServer(cfg.Telemetry.Addr, reg, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := engine.Options{
		Source:       source,
		Store:        store,
		Metrics:      metrics,
		Logger:       logger,
		Interval:     cfg.Sampling.Interval,
		WindowSize:   cfg.Sampling.WindowSize,
		CompactEvery: cfg.Sampling.CompactEvery,
		DataDir:      cfg.Target.DataDir,
	}
	opts.HostName, _ = os.Hostname()

	if cfg.AuthLog.Enabled {
		var logSource authlog.Source
		switch cfg.AuthLog.Source {
		case config.AuthFile:
			logSource = authlog.NewFileSource(cfg.AuthLog.FilePath)
		case config.AuthDocker:
			logSource = dockerClient
		default:
			logSource = authlog.NewJournalSource()
		}
		opts.Auth = authlog.NewIngestor(
			logSource,
			store,
			authlog.NewParser(cfg.AuthLog.FailureMarkers, cfg.AuthLog.SuccessMarkers),
			authlog.Config{
				Service:   cfg.AuthLog.Service,
				Lookback:  cfg.AuthLog.Lookback,
				MaxLines:  cfg.AuthLog.MaxLines,
				MaxEvents: cfg.AuthLog.MaxEvents,
			},
			logger,
		)
	}

	if cfg.NATS.Enabled {
		pub, err := bus.NewPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			// fan-out is optional; the dashboard runs without it
			logger.Warn("nats unavailable, events will not be published",
				slog.String("url", cfg.NATS.URL),
				slog.String("error", err.Error()))
		} else {
			defer pub.Close()
			opts.Publisher = pub
		}
	}

	eng, err := engine.New(opts)
	if err != nil {
		return err
	}
	if err := eng.Restore(ctx); err != nil {
		logger.Warn("failed to restore history", slog.String("error", err.Error()))
	}

	logger.Info("nodewatch starting",
		slog.String("target", cfg.Target.Name),
		slog.String("target_source", cfg.Target.Source),
		slog.String("storage", store.Driver()),
		slog.Duration("interval", cfg.Sampling.Interval))

	if err := tui.Run(ctx, eng, tui.Options{
		Target:       cfg.Target.Name,
		PollInterval: cfg.Sampling.PollInterval,
	}); err != nil {
		logger.Error("stopped", slog.String("error", err.Error()))
		return err
	}
	return nil
}
