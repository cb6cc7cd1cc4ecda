package providers

import (
	"github.com/orchestra-mcp/canvas/src/bridge"
	"github.com/orchestra-mcp/canvas/src/hub"
	"github.com/orchestra-mcp/canvas/src/types"
)

// Compile-time interface assertions.
var (
	_ Provider           = (*CanvasProvider)(nil)
	_ HasRoutes          = (*CanvasProvider)(nil)
	_ HasTools           = (*CanvasProvider)(nil)
	_ types.Conn         = (*fasthttpConn)(nil)
	_ hub.Pinger         = (*fasthttpConn)(nil)
	_ hub.EventPublisher = (bridge.Bridge)(nil)
)
