// Command flightgym runs demo rollouts of a registered environment against a
// JSBSim instance listening on its input socket, and records every episode to
// the configured storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flightgym/flightgym/internal/config"
	"github.com/flightgym/flightgym/internal/dispatcher"
	"github.com/flightgym/flightgym/internal/fdm/socket"
	"github.com/flightgym/flightgym/internal/logging"
	"github.com/flightgym/flightgym/internal/metrics"
	"github.com/flightgym/flightgym/internal/rollout"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AppName prefixes log files.
const AppName = "flightgym"

// set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

func main() {
	fs := pflag.NewFlagSet(AppName, pflag.ExitOnError)
	configDir := fs.StringP("config", "c", ".", "directory containing "+config.FileName)
	fs.StringP("env", "e", "", "environment id")
	fs.IntP("episodes", "n", 0, "number of episodes to run")
	fs.Uint64("seed", 0, "seed for the first episode's goal generation")
	fs.String("goal", "", "absolute goal as lat,lon,alt for environments that accept one")
	fs.Bool("render", false, "render every step to the log")
	fs.String("sim", "", "simulator input socket address")
	fs.String("storage", "", "storage backend: memory, sqlite, postgres or influx")
	_ = fs.Parse(os.Args[1:])

	if err := run(*configDir, fs); err != nil {
		fmt.Fprintln(os.Stderr, AppName+":", err)
		os.Exit(1)
	}
}

func run(configDir string, fs *pflag.FlagSet) error {
	sessionStart := time.Now()

	if err := config.Load(configDir); err != nil {
		// a missing file leaves the defaults in place
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}

	logCfg := config.GetLoggingConfig()
	if err := os.MkdirAll(logCfg.Dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	logFile := logging.NewRotatingFile(
		logging.LogFilePath(logCfg.Dir, AppName, sessionStart),
		logCfg.MaxSizeMB,
		logCfg.MaxBackups,
	)
	defer logFile.Close()

	var extra []slog.Handler
	if logCfg.Graylog.Enabled {
		gw, err := logging.NewGraylogWriter(logCfg.Graylog.Address)
		if err != nil {
			return err
		}
		defer gw.Close()
		extra = append(extra, slog.NewJSONHandler(gw, logging.HandlerOptions(logCfg.Level)))
	}

	tracker := &logging.EpisodeTracker{}
	slogManager := logging.NewSlogManager()
	slogManager.Tracker = tracker
	slogManager.Setup(logFile, logCfg.Level, extra...)
	logger := slogManager.Logger()
	storageLog := logging.NewZerolog(logFile, logCfg.Level)

	logger.Info("Starting up...", "version", Version, "buildDate", BuildDate)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := metrics.NewProvider()
	provider.SetGlobal()
	defer func() {
		logMetrics(provider, logger)
		_ = provider.Shutdown(context.Background())
	}()
	recorder, err := metrics.NewGlobal()
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}

	backend, err := initStorage(config.GetStorageConfig(), storageLog, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	eventDispatcher, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	// closed before the backend so buffered steps are written first
	defer eventDispatcher.Close()
	rolloutCfg := config.GetRolloutConfig()
	rollout.AttachStorage(eventDispatcher, backend, rolloutCfg.BufferSize)

	envCfg := config.GetEnvConfig()
	goal, err := parseGoal(envCfg.Goal)
	if err != nil {
		return err
	}

	simCfg := config.GetSimConfig()
	logger.Info("Connecting to simulator...", "address", simCfg.Address)
	sim, err := socket.Dial(ctx, socket.Config{Address: simCfg.Address, Timeout: simCfg.Timeout}, storageLog)
	if err != nil {
		return err
	}

	e, waypoints, err := buildEnv(sim, envCfg, rolloutCfg.Render, logger)
	if err != nil {
		sim.Close()
		return err
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Error("Failed to close env", "error", err)
		}
	}()

	runnerCfg := rollout.Config{
		EnvID:     envCfg.ID,
		Render:    rolloutCfg.Render,
		Seed:      envCfg.Seed,
		Waypoints: waypoints,
		Goal:      goal,
	}
	runner, err := rollout.New(rollout.Dependencies{
		Env:        e,
		Policy:     rollout.ConstantPolicy(rollout.DemoAction),
		Dispatcher: eventDispatcher,
		Metrics:    recorder,
		Tracker:    tracker,
		Logger:     logger,
	}, runnerCfg)
	if err != nil {
		return err
	}

	logger.Info("Running rollouts", "env", envCfg.ID, "episodes", rolloutCfg.Episodes)
	episodes, err := runner.Run(ctx, rolloutCfg.Episodes)
	if errors.Is(err, context.Canceled) {
		logger.Info("Interrupted", "completed", len(episodes))
		err = nil
	}
	if err != nil {
		return err
	}

	var total float64
	for _, ep := range episodes {
		total += ep.TotalReward
	}
	logger.Info("Rollouts finished", "episodes", len(episodes), "totalReward", total)
	return nil
}

func logMetrics(provider *metrics.Provider, logger *slog.Logger) {
	values, err := provider.Snapshot(context.Background())
	if err != nil {
		logger.Warn("Failed to collect metrics", "error", err)
		return
	}
	for _, v := range values {
		logger.Info("Metric", "name", v.Name, "attributes", v.Attributes, "value", v.Value, "count", v.Count)
	}
}
