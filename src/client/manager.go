// Package client connects to a canvas server, keeps a mirror of the
// shared canvas and reconnects with a linear backoff when the link drops.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/orchestra-mcp/canvas/config"
	"github.com/orchestra-mcp/canvas/src/oplog"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected is returned by send operations while no link is up.
	ErrNotConnected = errors.New("client: not connected")
	// ErrReconnectExhausted is returned by Run once every retry has failed.
	ErrReconnectExhausted = errors.New("client: reconnection attempts exhausted")
)

// State is the connection state of a Manager.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event reports a state change or a server message to the UI. Message is
// nil for pure state changes.
type Event struct {
	State   State
	Message protocol.Outbound
	Attempt int
	Delay   time.Duration
	Err     error
}

// Manager owns one logical session with a canvas server.
type Manager struct {
	cfg    *config.ClientConfig
	userID string
	dialer *websocket.Dialer
	mirror *Mirror
	events chan Event
	logger zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	writeMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// NewManager creates a manager. An empty cfg.UserID gets a generated id,
// reused on every reconnect.
func NewManager(cfg *config.ClientConfig, logger zerolog.Logger, opts ...Option) *Manager {
	if cfg == nil {
		cfg = config.DefaultClientConfig()
	}
	userID := cfg.UserID
	if userID == "" {
		userID = GenerateUserID()
	}
	queue := cfg.OutboundQueueSize
	if queue <= 0 {
		queue = 64
	}

	m := &Manager{
		cfg:    cfg,
		userID: userID,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		mirror: NewMirror(),
		events: make(chan Event, queue),
		logger: logger.With().Str("component", "canvas-client").Str("user_id", userID).Logger(),
		sleep:  sleepCtx,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GenerateUserID returns a fresh id of the form user_xxxxxxxxx.
func GenerateUserID() string {
	return "user_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

func (m *Manager) UserID() string       { return m.userID }
func (m *Manager) Mirror() *Mirror      { return m.mirror }
func (m *Manager) Events() <-chan Event { return m.events }

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Run connects and keeps reconnecting until ctx is cancelled or the retry
// budget is spent. Each disconnect waits BaseDelay times the attempt number;
// a successful connect resets the count. Cancellation returns nil.
// The Events channel is closed when Run returns, so Run is called once.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.events)

	attempt := 0
	for {
		if attempt == 0 {
			m.setState(StateConnecting, nil)
		}

		connected, err := m.session(ctx)
		if ctx.Err() != nil {
			m.setState(StateClosed, nil)
			return nil
		}
		if connected {
			attempt = 0
		}
		if attempt >= m.cfg.MaxAttempts {
			m.logger.Error().Err(err).Int("attempts", attempt).Msg("giving up on canvas server")
			m.setState(StateFailed, ErrReconnectExhausted)
			return fmt.Errorf("%w: %v", ErrReconnectExhausted, err)
		}

		attempt++
		delay := m.cfg.BaseDelay * time.Duration(attempt)
		m.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("reconnecting")
		m.set(StateReconnecting)
		m.emit(Event{State: StateReconnecting, Attempt: attempt, Delay: delay, Err: err})

		if err := m.sleep(ctx, delay); err != nil {
			m.setState(StateClosed, nil)
			return nil
		}
	}
}

// session runs one connection until it drops. connected reports whether
// the dial succeeded.
func (m *Manager) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := m.dialer.DialContext(ctx, m.cfg.URL, nil)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		conn.Close()
	}()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	m.logger.Info().Str("url", m.cfg.URL).Msg("connected to canvas server")
	m.setState(StateConnected, nil)

	if err := m.send(protocol.Register{Header: m.header()}); err != nil {
		return true, err
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		msg, err := protocol.DecodeOutbound(raw)
		if err != nil {
			m.logger.Warn().Err(err).Msg("failed to parse server message")
			continue
		}
		m.mirror.Apply(msg)
		m.emit(Event{State: StateConnected, Message: msg})
	}
}

// Draw mirrors the stroke locally and sends it to the server. A stroke
// the server would reject, or one that cannot be sent, leaves no trace in
// the mirror.
func (m *Manager) Draw(stroke types.Stroke) (types.Operation, error) {
	if len(stroke.Points) == 0 {
		return types.Operation{}, oplog.ErrEmptyStroke
	}
	h := m.header()
	op := m.mirror.AddLocal(stroke, h.Timestamp)
	if err := m.send(protocol.Draw{Header: h, Stroke: stroke, ClientOpID: op.ID}); err != nil {
		m.mirror.DropLocal(op.ID)
		return types.Operation{}, err
	}
	return op, nil
}

// Cursor shares the pointer position.
func (m *Manager) Cursor(x, y float64) error {
	return m.send(protocol.CursorMove{Header: m.header(), Position: types.Cursor{X: x, Y: y}})
}

func (m *Manager) Undo() error  { return m.send(protocol.Undo{Header: m.header()}) }
func (m *Manager) Redo() error  { return m.send(protocol.Redo{Header: m.header()}) }
func (m *Manager) Clear() error { return m.send(protocol.Clear{Header: m.header()}) }

func (m *Manager) header() protocol.Header {
	return protocol.Header{UserID: m.userID, Timestamp: m.now().UnixMilli()}
}

func (m *Manager) send(msg protocol.Inbound) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(msg.Frame())
}

func (m *Manager) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) setState(s State, err error) {
	m.set(s)
	m.emit(Event{State: s, Err: err})
}

// emit never blocks the read loop; a UI that falls behind loses events but
// can always rebuild from the mirror.
func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Debug().Str("state", ev.State.String()).Msg("event dropped")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
