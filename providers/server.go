package providers

import (
	"errors"
	"fmt"
	"net"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var errNotActivated = errors.New("canvas provider is not active")

// Handler returns the root request handler: the websocket endpoint and
// metrics are served directly on fasthttp, everything else goes to Fiber.
func (p *CanvasProvider) Handler() fasthttp.RequestHandler {
	ws := p.FastHTTPHandler()
	metrics := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry}),
	)
	app := p.app.Handler()

	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/ws":
			ws(ctx)
		case "/metrics":
			metrics(ctx)
		default:
			app(ctx)
		}
	}
}

// Serve accepts connections on ln until Shutdown is called.
func (p *CanvasProvider) Serve(ln net.Listener) error {
	if !p.IsActive() {
		return errNotActivated
	}
	srv := &fasthttp.Server{
		Handler:         p.Handler(),
		Name:            "canvas",
		ReadBufferSize:  4096,
		CloseOnShutdown: true,
	}
	p.mu.Lock()
	p.server = srv
	p.mu.Unlock()

	p.logger.Info().Str("addr", ln.Addr().String()).Msg("canvas server listening")
	return srv.Serve(ln)
}

// ListenAndServe listens on the configured port.
func (p *CanvasProvider) ListenAndServe() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", p.cfg.Port, err)
	}
	return p.Serve(ln)
}

// Shutdown stops the hub, which closes every websocket, then stops the
// HTTP server.
func (p *CanvasProvider) Shutdown() error {
	err := p.Deactivate()

	p.mu.Lock()
	srv := p.server
	p.server = nil
	p.mu.Unlock()
	if srv != nil {
		if serr := srv.Shutdown(); err == nil {
			err = serr
		}
	}
	return err
}
