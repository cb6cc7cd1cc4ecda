package hub

import (
	"github.com/orchestra-mcp/canvas/src/engine"
	"github.com/orchestra-mcp/canvas/src/types"
)

// Accept registers a new connection and starts its write pump. The caller
// runs ReadPump on the returned client, usually on the upgrade goroutine.
func (h *Hub) Accept(id string, conn types.Conn) *Client {
	client := NewClient(id, conn, h)
	h.Register(client)
	go client.WritePump()
	return client
}

// ConnectedClients returns a list of connected client IDs.
func (h *Hub) ConnectedClients() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// ClientInfo returns info for a connected client, or nil.
func (h *Hub) ClientInfo(clientID string) *types.ConnInfo {
	h.mu.RLock()
	client, ok := h.clients[clientID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	info := client.Info()
	return &info
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns the engine summary as of the last processed event.
func (h *Hub) Stats() engine.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Users returns the presence roster as of the last processed event.
func (h *Hub) Users() []types.UserInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]types.UserInfo, len(h.roster))
	copy(out, h.roster)
	return out
}
