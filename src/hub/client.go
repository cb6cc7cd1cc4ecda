package hub

import (
	"sync"
	"time"

	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
)

// Pinger is implemented by connections that support keepalive pings.
type Pinger interface {
	Ping() error
}

// Client wraps a WebSocket connection and manages message flow.
type Client struct {
	ID          string
	conn        types.Conn
	hub         *Hub
	Send        chan protocol.Frame
	connectedAt time.Time
	mu          sync.RWMutex
	done        chan struct{}
	closed      bool
}

// NewClient creates a new WebSocket client wrapper.
func NewClient(id string, conn types.Conn, h *Hub) *Client {
	return &Client{
		ID:          id,
		conn:        conn,
		hub:         h,
		Send:        make(chan protocol.Frame, h.sendBuffer),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Info returns metadata about this client.
func (c *Client) Info() types.ConnInfo {
	return types.ConnInfo{
		ID:          c.ID,
		ConnectedAt: c.connectedAt,
	}
}

// ReadPump reads frames from the WebSocket and hands them to the hub.
// It returns when the connection fails or closes.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.hub.logger.Debug().Err(err).Str("conn_id", c.ID).Msg("read ended")
			return
		}
		if !c.hub.submit(inbound{connID: c.ID, raw: raw}) {
			return
		}
	}
}

// WritePump writes frames from the send channel to the WebSocket.
func (c *Client) WritePump() {
	defer c.conn.Close()

	var ping <-chan time.Time
	pinger, canPing := c.conn.(Pinger)
	if canPing && c.hub.pingInterval > 0 {
		ticker := time.NewTicker(c.hub.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}

	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.hub.logger.Warn().Err(err).Str("conn_id", c.ID).Msg("write failed")
				return
			}
		case <-ping:
			if err := pinger.Ping(); err != nil {
				c.hub.logger.Warn().Err(err).Str("conn_id", c.ID).Msg("ping failed")
				return
			}
		case <-c.done:
			return
		}
	}
}

// enqueue queues a frame without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) enqueue(f protocol.Frame) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- f:
		return true
	default:
		return false
	}
}

// Close signals the client to stop its pumps.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		close(c.Send)
	}
}
