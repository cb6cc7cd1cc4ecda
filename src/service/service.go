package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/orchestra-mcp/canvas/src/engine"
	"github.com/orchestra-mcp/canvas/src/hub"
	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/rs/zerolog"
)

// ErrClientNotFound is returned when a connection id is not registered.
var ErrClientNotFound = errors.New("client not found")

// Service provides the read-only operator API over a running canvas hub.
type Service struct {
	hub    *hub.Hub
	logger zerolog.Logger
}

// Info summarizes the websocket endpoint and the canvas it serves.
type Info struct {
	WebSocket bool   `json:"websocket"`
	Endpoint  string `json:"endpoint"`
	Clients   int    `json:"clients"`
	engine.Stats
}

// New creates a new canvas service backed by the given hub.
func New(h *hub.Hub, logger zerolog.Logger) *Service {
	return &Service{hub: h, logger: logger.With().Str("component", "service").Logger()}
}

// Hub returns the underlying hub.
func (s *Service) Hub() *hub.Hub { return s.hub }

// Info returns the endpoint summary.
func (s *Service) Info() Info {
	return Info{
		WebSocket: true,
		Endpoint:  "/ws",
		Clients:   s.hub.ClientCount(),
		Stats:     s.hub.Stats(),
	}
}

// Stats returns the canvas counters.
func (s *Service) Stats() engine.Stats { return s.hub.Stats() }

// Users returns the presence roster in registration order.
func (s *Service) Users() []types.UserInfo { return s.hub.Users() }

// GetConnectedClients returns IDs of all connected clients, sorted.
func (s *Service) GetConnectedClients() []string {
	ids := s.hub.ConnectedClients()
	sort.Strings(ids)
	return ids
}

// GetClientInfo returns info for a connected client, or error.
func (s *Service) GetClientInfo(clientID string) (*types.ConnInfo, error) {
	info := s.hub.ClientInfo(clientID)
	if info == nil {
		s.logger.Debug().Str("conn_id", clientID).Msg("client lookup missed")
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
	}
	return info, nil
}
