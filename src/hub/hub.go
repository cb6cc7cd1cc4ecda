package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/orchestra-mcp/canvas/src/engine"
	"github.com/orchestra-mcp/canvas/src/metrics"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventPublisher forwards committed broadcasts to other processes.
// Defined here to avoid circular imports with the bridge package.
type EventPublisher interface {
	Publish(frame protocol.Frame) error
	Available() bool
}

// Hub owns every websocket connection and the canvas engine. All inbound
// frames and connection lifecycle events are applied one at a time on the
// Run goroutine, which is what serializes access to the engine.
type Hub struct {
	clients map[string]*Client
	engine  *engine.Engine

	register chan *Client
	incoming chan inbound

	publisher    EventPublisher
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	sendBuffer   int
	pingInterval time.Duration

	// Snapshots for readers outside the Run goroutine.
	stats  engine.Stats
	roster []types.UserInfo

	mu       sync.RWMutex
	logger   zerolog.Logger
	done     chan struct{}
	stopOnce sync.Once
}

// inbound is one event from a connection. A close travels on the same
// queue as the frames read before it, so it is never applied ahead of them.
type inbound struct {
	connID string
	raw    []byte
	closed *Client
}

// Option configures a Hub.
type Option func(*Hub)

// WithMetrics records hub activity on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) { h.metrics = m }
}

// WithTracer overrides the global OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(h *Hub) { h.tracer = t }
}

// WithSendBuffer sets the per-connection outbound queue length.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithPingInterval enables keepalive pings on connections that support them.
func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) { h.pingInterval = d }
}

// New creates a new Hub around eng.
func New(eng *engine.Engine, logger zerolog.Logger, opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		engine:     eng,
		register:   make(chan *Client),
		incoming:   make(chan inbound, 256),
		tracer:     otel.Tracer("github.com/orchestra-mcp/canvas/src/hub"),
		sendBuffer: 256,
		logger:     logger.With().Str("component", "hub").Logger(),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = metrics.New(metrics.WithRegistry(prometheus.NewRegistry()))
	}
	h.refreshState()
	return h
}

// SetPublisher attaches an event feed. When set, every broadcast except
// cursor relays is also published to it.
func (h *Hub) SetPublisher(p EventPublisher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.publisher = p
}

// Run starts the hub event loop. Call in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case in := <-h.incoming:
			if in.closed != nil {
				h.removeClient(in.closed)
				continue
			}
			h.handleFrame(in)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop halts the hub event loop and closes every connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register queues a client for registration.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister queues a client for removal behind any frames it already
// submitted.
func (h *Hub) Unregister(c *Client) {
	h.submit(inbound{connID: c.ID, closed: c})
}

func (h *Hub) submit(in inbound) bool {
	select {
	case h.incoming <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(n)
	h.logger.Info().Str("conn_id", c.ID).Int("clients", n).Msg("client connected")
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	n := len(h.clients)
	h.mu.Unlock()

	c.Close()
	h.metrics.SetConnections(n)
	h.logger.Info().Str("conn_id", c.ID).Int("clients", n).Msg("client disconnected")

	h.route(h.engine.Disconnect(c.ID))
	h.refreshState()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	h.metrics.SetConnections(0)
}

func (h *Hub) handleFrame(in inbound) {
	h.mu.RLock()
	_, live := h.clients[in.connID]
	h.mu.RUnlock()
	if !live {
		h.logger.Debug().Str("conn_id", in.connID).Msg("frame from closed connection dropped")
		return
	}

	_, span := h.tracer.Start(context.Background(), "canvas.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("canvas.conn_id", in.connID)),
	)

	start := time.Now()
	res := h.engine.Handle(in.connID, in.raw)
	elapsed := time.Since(start)

	outcome := outcomeOf(res.Err)
	span.SetAttributes(
		attribute.String("canvas.message_type", string(res.Kind)),
		attribute.Int("canvas.deliveries", len(res.Deliveries)),
	)
	if res.Err != nil {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()

	h.metrics.ObserveFrame(string(res.Kind), outcome, elapsed)
	h.route(res)
	h.refreshState()
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, protocol.ErrMalformed):
		return metrics.OutcomeMalformed
	case errors.Is(err, protocol.ErrUnknownType):
		return metrics.OutcomeUnknown
	default:
		return metrics.OutcomeRejected
	}
}

// refreshState copies engine state for readers on other goroutines.
func (h *Hub) refreshState() {
	stats := h.engine.Stats()
	sessions := h.engine.Sessions()
	roster := make([]types.UserInfo, len(sessions))
	for i, s := range sessions {
		roster[i] = s.Info()
	}

	h.mu.Lock()
	h.stats = stats
	h.roster = roster
	h.mu.Unlock()

	h.metrics.SetState(stats.Sessions, stats.Operations, stats.Live)
}
