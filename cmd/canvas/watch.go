package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/orchestra-mcp/canvas/config"
	"github.com/orchestra-mcp/canvas/src/client"
	"github.com/orchestra-mcp/canvas/src/discovery"
	"github.com/orchestra-mcp/canvas/src/tui"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	var (
		url      string
		userID   string
		logFile  string
		discover bool
		attempts int
		delay    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a canvas from the terminal",
		Long: `Connect to a canvas server and show who is online and how the
operation log changes. Keys: u undo, r redo, c clear, q quit.

Examples:
  canvas watch
  canvas watch --url=ws://studio.local:3000/ws
  canvas watch --discover`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.ClientConfigFromEnv()
			if cmd.Flags().Changed("url") {
				cfg.URL = url
			}
			if cmd.Flags().Changed("user") {
				cfg.UserID = userID
			}
			if cmd.Flags().Changed("attempts") {
				cfg.MaxAttempts = attempts
			}
			if cmd.Flags().Changed("delay") {
				cfg.BaseDelay = delay
			}
			if discover {
				addr, err := discoverServer(3 * time.Second)
				if err != nil {
					return err
				}
				cfg.URL = discovery.WebsocketURL(addr)
			}

			// The terminal belongs to the UI, so logs only go to a file.
			logger := zerolog.Nop()
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					return fmt.Errorf("open log file: %w", err)
				}
				defer f.Close()
				if logger, err = newLogger(f, logLevel, false); err != nil {
					return err
				}
			}

			return runWatch(cmd, cfg, logger)
		},
	}

	cmd.Flags().StringVar(&url, "url", "ws://localhost:3000/ws", "Canvas endpoint (default from CANVAS_URL)")
	cmd.Flags().StringVar(&userID, "user", "", "User id to register as (default generated)")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")
	cmd.Flags().BoolVar(&discover, "discover", false, "Find a server on the local network via mDNS")
	cmd.Flags().IntVar(&attempts, "attempts", 5, "Reconnection attempts before giving up")
	cmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "Base reconnection delay, multiplied by the attempt number")

	return cmd
}

func runWatch(cmd *cobra.Command, cfg *config.ClientConfig, logger zerolog.Logger) error {
	mgr := client.NewManager(cfg, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- mgr.Run(ctx) }()

	prog := tea.NewProgram(tui.New(mgr), tea.WithAltScreen())
	_, uiErr := prog.Run()
	cancel()

	if err := <-runErr; err != nil {
		return err
	}
	return uiErr
}

func discoverServer(timeout time.Duration) (string, error) {
	var found string
	err := discovery.Browse(timeout, func(addr string) {
		if found == "" {
			found = addr
		}
	})
	if err != nil {
		return "", fmt.Errorf("mdns lookup: %w", err)
	}
	if found == "" {
		return "", errors.New("no canvas server found on the local network")
	}
	return found, nil
}
