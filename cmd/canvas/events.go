package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/orchestra-mcp/canvas/src/bridge"
	"github.com/spf13/cobra"
)

func eventsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the Redis event feed",
		Long: `Subscribe to the event feed servers publish to Redis and print every
broadcast as it happens. Connection settings come from REDIS_ADDR,
REDIS_PASSWORD, REDIS_DB and REDIS_EVENTS_PREFIX.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(os.Stderr, logLevel, logPretty)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rb := bridge.NewRedisBridge(bridge.RedisConfigFromEnv(), logger)
			if err := rb.Start(ctx); err != nil {
				return fmt.Errorf("connect to redis: %w", err)
			}
			defer rb.Stop()

			out := cmd.OutOrStdout()
			return rb.Subscribe(ctx, func(_ context.Context, ev bridge.Event) {
				printEvent(out, ev, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON events")

	return cmd
}

func printEvent(w io.Writer, ev bridge.Event, asJSON bool) {
	if asJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}
	fmt.Fprintln(w, formatEvent(ev))
}

// formatEvent renders one feed event as a single line.
func formatEvent(ev bridge.Event) string {
	instance := ev.InstanceID
	if len(instance) > 8 {
		instance = instance[:8]
	}
	f := ev.Frame
	line := fmt.Sprintf("%-8s %-6s", instance, f.Type)
	if f.UserID != "" {
		line += " user=" + f.UserID
	}
	if f.OperationID != "" {
		line += " op=" + f.OperationID
	}
	if op, ok := f.Data.(map[string]any); ok {
		if id, ok := op["id"].(string); ok {
			line += " op=" + id
		}
		if author, ok := op["userId"].(string); ok {
			line += " by=" + author
		}
	}
	if users, ok := f.Data.([]any); ok {
		line += fmt.Sprintf(" users=%d", len(users))
	}
	return line
}
