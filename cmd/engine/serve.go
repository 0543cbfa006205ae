package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"threadview/internal/config"
	"threadview/internal/database"
	"threadview/internal/engine"
	"threadview/internal/handlers"
	"threadview/internal/middleware"
	"threadview/internal/store"
	"threadview/internal/utils"
	"threadview/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/spf13/cobra"
)

// ServeOptions override the environment configuration.
type ServeOptions struct {
	Port     int
	PageID   string
	SeedFile string
}

func NewServeCommand(root *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if opts.Port != 0 {
				cfg.Server.Port = opts.Port
			}
			if opts.PageID != "" {
				cfg.PageID = opts.PageID
			}
			if opts.SeedFile != "" {
				cfg.Database.SeedFile = opts.SeedFile
			}
			cfg.Debug = cfg.Debug || root.Debug

			logger := newLogger(cmd.ErrOrStderr(), cfg.Debug)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}

	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (overrides PORT)")
	cmd.Flags().StringVar(&opts.PageID, "page", "", "page to serve (overrides PAGE_ID)")
	cmd.Flags().StringVar(&opts.SeedFile, "seed", "", "YAML seed file for the file database (overrides SEED_FILE)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.NewDBAdapter(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}()
	if err := db.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}

	page, err := db.GetPage(ctx, cfg.PageID)
	if err != nil {
		return fmt.Errorf("load page %s: %w", cfg.PageID, err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	metrics := utils.NewMetricsCollector()
	st := store.New(page,
		store.WithUI(websocket.NewRemoteUI(hub)),
		store.WithMetrics(metrics),
		store.WithLogger(logger),
	)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, st, metrics, logger)
	if _, err := eng.Subscribe(ctx, hub.BroadcastChange); err != nil {
		return fmt.Errorf("subscribe to page changes: %w", err)
	}

	auth := middleware.NewAuthenticator(cfg.JWTSecret, logger)
	srv := handlers.NewServer(eng, db, hub, auth, metrics, cfg.PageID, cfg.AllowedOrigins, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           srv.Routes(cfg.Server.MetricsEnabled),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"addr", httpServer.Addr,
			"page_id", cfg.PageID,
			"db", cfg.Database.Type,
			"posts", len(page.AllPosts))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	system.Root.Stop(eng.GetStoreActor())
	return nil
}
