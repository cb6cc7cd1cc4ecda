// Package engine is the canvas message dispatcher. It owns the operation log
// and the session registry and turns each inbound frame into state changes
// plus the deliveries that announce them. It never touches a connection;
// the hub routes the returned deliveries.
package engine

import (
	"errors"

	"github.com/orchestra-mcp/canvas/src/oplog"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/session"
	"github.com/rs/zerolog"
)

// Delivery is one outbound message and where it goes. A broadcast reaches
// every registered session except Exclude; otherwise the message goes only
// to ConnID.
type Delivery struct {
	Message   protocol.Outbound
	Broadcast bool
	Exclude   string
	ConnID    string
}

// Result is the outcome of handling one frame.
type Result struct {
	// Kind is the decoded message kind, empty when decoding failed.
	Kind       protocol.Kind
	Deliveries []Delivery
	// Err is set for frames that were rejected or dropped.
	Err error
}

func (r *Result) direct(connID string, m protocol.Outbound) {
	r.Deliveries = append(r.Deliveries, Delivery{Message: m, ConnID: connID})
}

func (r *Result) broadcast(m protocol.Outbound, exclude string) {
	r.Deliveries = append(r.Deliveries, Delivery{Message: m, Broadcast: true, Exclude: exclude})
}

// Stats is a point-in-time summary of engine state.
type Stats struct {
	Operations int `json:"operations"`
	Live       int `json:"live_operations"`
	Sessions   int `json:"sessions"`
}

// Engine is the shared canvas state. It is not safe for concurrent use;
// the hub calls it from a single goroutine.
type Engine struct {
	log      *oplog.Log
	sessions *session.Registry
	logger   zerolog.Logger
}

// New creates an engine over the given log and registry.
func New(log *oplog.Log, sessions *session.Registry, logger zerolog.Logger) *Engine {
	return &Engine{
		log:      log,
		sessions: sessions,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

// Handle decodes and applies one frame received on connID.
func (e *Engine) Handle(connID string, raw []byte) Result {
	msg, err := protocol.DecodeInbound(raw)
	if err != nil {
		res := Result{Err: err}
		if errors.Is(err, protocol.ErrUnknownType) {
			e.logger.Warn().Err(err).Str("conn_id", connID).Msg("unknown message type")
			return res
		}
		e.logger.Warn().Err(err).Str("conn_id", connID).Msg("invalid message format")
		res.direct(connID, protocol.Error{Message: "Invalid message format"})
		return res
	}

	res := Result{Kind: msg.Kind()}
	msg.Dispatch(&dispatch{engine: e, connID: connID, res: &res})
	return res
}

// Disconnect drops the sessions bound to connID and announces the new
// roster when anything changed.
func (e *Engine) Disconnect(connID string) Result {
	var res Result
	removed := e.sessions.UnregisterConn(connID)
	if len(removed) == 0 {
		return res
	}
	for _, id := range removed {
		e.logger.Info().
			Str("user_id", id).
			Int("remaining", e.sessions.Len()).
			Msg("user disconnected")
	}
	res.broadcast(protocol.Users{Users: e.sessions.List()}, "")
	return res
}

// Sessions returns the registered sessions for routing.
func (e *Engine) Sessions() []session.Session { return e.sessions.Sessions() }

// Stats summarizes the current state.
func (e *Engine) Stats() Stats {
	return Stats{
		Operations: e.log.Len(),
		Live:       e.log.Live(),
		Sessions:   e.sessions.Len(),
	}
}
