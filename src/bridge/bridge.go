package bridge

import (
	"context"

	"github.com/orchestra-mcp/canvas/src/protocol"
)

// Bridge defines the interface for publishing canvas events to other
// processes. The canvas state itself never leaves the server; the feed is
// a stream of what was broadcast.
type Bridge interface {
	// Publish sends a broadcast frame to the feed.
	Publish(frame protocol.Frame) error

	// Start connects to the feed backend.
	Start(ctx context.Context) error

	// Stop shuts down the bridge connection.
	Stop() error

	// Available reports whether the bridge is connected and operational.
	Available() bool
}

// Event is one frame received from the feed.
type Event struct {
	InstanceID string         `json:"instance_id"`
	Frame      protocol.Frame `json:"frame"`
}

// EventHandler consumes feed events.
type EventHandler func(ctx context.Context, ev Event)
