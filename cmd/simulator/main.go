package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"threadview/internal/store"
	"threadview/simulator"
)

func main() {
	if err := newSimulateCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSimulateCommand() *cobra.Command {
	config := simulator.DefaultSimConfig()
	var debug bool

	cmd := &cobra.Command{
		Use:          "threadview-sim",
		Short:        "Drive a running threadview server with simulated readers",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.JWTSecret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
				Level:      level,
				TimeFormat: time.TimeOnly,
			}))
			return runSimulation(cmd.Context(), config, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&config.EngineURL, "url", config.EngineURL, "engine base URL")
	flags.IntSliceVar(&config.UserIDs, "users", config.UserIDs, "user ids to act as, one reader each")
	flags.IntVar(&config.NumViewers, "viewers", config.NumViewers, "websocket viewers to hold open")
	flags.DurationVar(&config.SimulationTime, "duration", config.SimulationTime, "how long to run")
	flags.DurationVar(&config.TickInterval, "tick", config.TickInterval, "time between reader activities")
	flags.Float64Var(&config.ZipfS, "zipf", config.ZipfS, "zipf exponent for picking posts, must be > 1")
	flags.Int64Var(&config.Seed, "seed", config.Seed, "random seed")
	flags.StringVar(&config.JWTSecret, "secret", os.Getenv("JWT_SECRET"), "secret the engine signs tokens with")
	flags.BoolVar(&debug, "debug", false, "debug logging")

	return cmd
}

func runSimulation(parent context.Context, config simulator.SimConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SimulationTime)
	defer cancel()

	logger.Info("simulation configured",
		"url", config.EngineURL,
		"users", config.UserIDs,
		"viewers", config.NumViewers,
		"duration", config.SimulationTime,
		"tick", config.TickInterval,
		"zipf", config.ZipfS)

	sim := simulator.NewSimulator(config, logger)
	if err := sim.Run(ctx); err != nil {
		logger.Error("simulation failed", "error", err)
		return err
	}

	m := sim.GetMetrics()
	logger.Info("simulation completed",
		"requests", m.TotalRequests,
		"errors", m.ErrorCount,
		"requests_per_sec", fmt.Sprintf("%.2f", m.RequestsPerSecond),
		"p50_latency", m.P50Latency,
		"p95_latency", m.P95Latency,
		"replies", m.ActionCounts[store.KindUpdatePost],
		"votes", m.ActionCounts[store.KindVoteOnPost],
		"reads", m.ActionCounts[store.KindMarkPostAsRead],
		"notices", m.NoticesReceived,
		"known_posts", m.KnownPosts)
	return nil
}
