package hub

import (
	"github.com/orchestra-mcp/canvas/src/engine"
	"github.com/orchestra-mcp/canvas/src/protocol"
)

// route delivers every message in res. Only the Run goroutine calls it.
func (h *Hub) route(res engine.Result) {
	for _, d := range res.Deliveries {
		frame := d.Message.Frame()
		kind := string(d.Message.Kind())

		if !d.Broadcast {
			h.sendTo(d.ConnID, frame, kind)
			continue
		}
		h.broadcast(frame, kind, d.Exclude)
		if d.Message.Kind() != protocol.KindCursor {
			h.publish(frame)
		}
	}
}

// broadcast sends to every registered session except the one whose userId
// equals exclude. Sessions whose connection is already gone are skipped.
func (h *Hub) broadcast(frame protocol.Frame, kind, exclude string) {
	for _, s := range h.engine.Sessions() {
		if exclude != "" && s.UserID == exclude {
			continue
		}
		h.sendTo(s.ConnID, frame, kind)
	}
}

func (h *Hub) sendTo(connID string, frame protocol.Frame, kind string) bool {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if !client.enqueue(frame) {
		h.metrics.Dropped()
		h.logger.Warn().
			Str("conn_id", connID).
			Str("type", kind).
			Msg("send buffer full, dropping")
		return false
	}
	h.metrics.Delivered(kind)
	return true
}

// publish forwards a broadcast to the event feed if one is attached.
func (h *Hub) publish(frame protocol.Frame) {
	h.mu.RLock()
	p := h.publisher
	h.mu.RUnlock()

	if p == nil || !p.Available() {
		return
	}
	if err := p.Publish(frame); err != nil {
		h.logger.Warn().Err(err).Str("type", string(frame.Type)).Msg("event feed dropped frame")
	}
}
