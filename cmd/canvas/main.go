package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build information set at build time.
var (
	commit = "none"
	date   = "unknown"
)

var (
	logLevel  string
	logPretty bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "canvas",
		Short: "Shared drawing canvas server and tools",
		Long: `Canvas keeps one shared drawing surface in sync across every
connected client over WebSocket.

  • serve   run the canvas server
  • watch   follow a canvas from the terminal
  • events  tail the Redis event feed`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "Human-readable console logs")

	rootCmd.AddCommand(
		serveCmd(),
		watchCmd(),
		eventsCmd(),
		versionCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger from the global flags.
func newLogger(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
