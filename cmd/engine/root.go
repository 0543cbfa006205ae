package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Debug bool
}

// NewRootCommand creates the root command for the threadview CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "threadview",
		Short:        "Threaded discussion page server",
		Long:         "Serves one discussion page: loads its posts, applies reader actions and pushes changes to connected viewers.",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "debug logging (also DEBUG=true)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// newLogger returns a tint console logger writing to w.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
