package providers

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/orchestra-mcp/canvas/config"
	"github.com/orchestra-mcp/canvas/src/bridge"
	"github.com/orchestra-mcp/canvas/src/engine"
	"github.com/orchestra-mcp/canvas/src/hub"
	"github.com/orchestra-mcp/canvas/src/metrics"
	"github.com/orchestra-mcp/canvas/src/oplog"
	"github.com/orchestra-mcp/canvas/src/service"
	"github.com/orchestra-mcp/canvas/src/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// Version is reported by the provider and the CLI.
var Version = "0.1.0"

// Provider is a component with an activate/deactivate lifecycle.
type Provider interface {
	ID() string
	Name() string
	Version() string
	IsActive() bool
	Activate(ctx context.Context) error
	Deactivate() error
}

// HasRoutes is implemented by providers that contribute HTTP routes.
type HasRoutes interface {
	RegisterRoutes(group fiber.Router)
}

// HasTools is implemented by providers that contribute operator tools.
type HasTools interface {
	Tools() []ToolDefinition
}

// CanvasProvider wires the canvas engine, hub and transports into one
// servable unit.
type CanvasProvider struct {
	mu       sync.Mutex
	active   bool
	logger   zerolog.Logger
	cfg      *config.ServerConfig
	redisCfg *bridge.RedisConfig
	rng      *rand.Rand

	registry *prometheus.Registry
	hub      *hub.Hub
	service  *service.Service
	bridge   bridge.Bridge
	app      *fiber.App
	server   *fasthttp.Server
	upgrader websocket.FastHTTPUpgrader
}

// ProviderOption configures a CanvasProvider.
type ProviderOption func(*CanvasProvider)

// WithRedis enables the Redis event feed. Without it the server runs
// standalone.
func WithRedis(cfg *bridge.RedisConfig) ProviderOption {
	return func(p *CanvasProvider) { p.redisCfg = cfg }
}

// WithColorSource seeds presence color assignment.
func WithColorSource(rng *rand.Rand) ProviderOption {
	return func(p *CanvasProvider) { p.rng = rng }
}

// NewCanvasProvider creates a new canvas provider instance.
func NewCanvasProvider(cfg *config.ServerConfig, logger zerolog.Logger, opts ...ProviderOption) *CanvasProvider {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	p := &CanvasProvider{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *CanvasProvider) ID() string      { return "orchestra/canvas" }
func (p *CanvasProvider) Name() string    { return "Canvas" }
func (p *CanvasProvider) Version() string { return Version }

// IsActive reports whether Activate has run and Deactivate has not.
func (p *CanvasProvider) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Activate builds the engine and hub, starts the event loop and prepares
// the HTTP surface.
func (p *CanvasProvider) Activate(ctx context.Context) error {
	p.registry = prometheus.NewRegistry()
	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(metrics.WithRegistry(p.registry))

	eng := engine.New(oplog.New(), session.NewRegistry(p.rng), p.logger)
	p.hub = hub.New(eng, p.logger,
		hub.WithMetrics(m),
		hub.WithSendBuffer(p.cfg.SendBuffer),
		hub.WithPingInterval(p.cfg.PingInterval),
	)
	p.service = service.New(p.hub, p.logger)

	go p.hub.Run()

	// Attempt Redis bridge connection (non-fatal if unavailable).
	p.initBridge(ctx)

	p.upgrader = websocket.FastHTTPUpgrader{
		ReadBufferSize:  p.cfg.ReadBufferSize,
		WriteBufferSize: p.cfg.WriteBufferSize,
		CheckOrigin:     func(*fasthttp.RequestCtx) bool { return true },
	}
	p.app = fiber.New(fiber.Config{AppName: "canvas " + Version})
	p.RegisterRoutes(p.app)

	p.mu.Lock()
	p.active = true
	p.mu.Unlock()
	p.logger.Info().Str("provider", p.ID()).Msg("canvas provider activated")
	return nil
}

// initBridge tries to start the Redis event feed.
// If Redis is not reachable, the hub runs in standalone mode.
func (p *CanvasProvider) initBridge(ctx context.Context) {
	if p.redisCfg == nil {
		return
	}
	rb := bridge.NewRedisBridge(p.redisCfg, p.logger)

	if err := rb.Start(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("redis event feed unavailable, running standalone")
		_ = rb.Stop()
		return
	}

	p.mu.Lock()
	p.bridge = rb
	p.mu.Unlock()
	p.hub.SetPublisher(rb)
	p.logger.Info().Str("redis_addr", p.redisCfg.Addr).Msg("redis event feed connected")
}

// Deactivate stops the bridge and hub event loop.
func (p *CanvasProvider) Deactivate() error {
	p.mu.Lock()
	b := p.bridge
	p.bridge = nil
	p.active = false
	p.mu.Unlock()

	if b != nil {
		if err := b.Stop(); err != nil {
			p.logger.Error().Err(err).Msg("bridge stop error")
		}
	}
	if p.hub != nil {
		p.hub.Stop()
	}
	return nil
}

// Service exposes the operator API.
func (p *CanvasProvider) Service() *service.Service { return p.service }

// EventFeed reports whether broadcasts are being published to Redis.
func (p *CanvasProvider) EventFeed() bool {
	p.mu.Lock()
	b := p.bridge
	p.mu.Unlock()
	return b != nil && b.Available()
}
