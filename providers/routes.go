package providers

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// RegisterRoutes registers the HTTP routes via Fiber.
// The websocket upgrade uses FastHTTPHandler, dispatched ahead of the
// Fiber app since Fiber v3 does not expose *fasthttp.RequestCtx.
func (p *CanvasProvider) RegisterRoutes(group fiber.Router) {
	group.Get("/health", p.handleHealth)
	group.Get("/ws/info", p.handleInfo)
	group.Get("/tools", p.handleToolList)
	group.Post("/tools/:name", p.handleTool)
}

func (p *CanvasProvider) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
	})
}

func (p *CanvasProvider) handleInfo(c fiber.Ctx) error {
	info := p.service.Info()
	return c.JSON(fiber.Map{
		"websocket":       info.WebSocket,
		"endpoint":        info.Endpoint,
		"clients":         info.Clients,
		"sessions":        info.Sessions,
		"operations":      info.Operations,
		"live_operations": info.Live,
		"event_feed":      p.EventFeed(),
	})
}

func (p *CanvasProvider) handleToolList(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"tools": p.Tools()})
}

func (p *CanvasProvider) handleTool(c fiber.Ctx) error {
	name := c.Params("name")
	tool, ok := p.tool(name)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "unknown_tool",
			"message": "no tool named " + name,
		})
	}

	input := map[string]any{}
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "invalid_input",
				"message": err.Error(),
			})
		}
	}

	result, err := tool.Handler(input)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, errNotActive) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"error":   "tool_failed",
			"message": err.Error(),
		})
	}
	return c.JSON(result)
}

// FastHTTPHandler returns a raw fasthttp handler for WebSocket upgrades.
// Register this on the fasthttp server at the "/ws" path.
func (p *CanvasProvider) FastHTTPHandler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		upgrade := string(ctx.Request.Header.Peek("Upgrade"))
		if !strings.EqualFold(upgrade, "websocket") {
			ctx.SetStatusCode(fasthttp.StatusUpgradeRequired)
			ctx.SetContentType("application/json")
			ctx.SetBodyString(`{"error":"upgrade_required","message":"WebSocket upgrade required"}`)
			return
		}

		clientID := uuid.New().String()
		h := p.hub
		cfg := p.cfg
		logger := p.logger

		err := p.upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
			if cfg.MaxMessageBytes > 0 {
				conn.SetReadLimit(cfg.MaxMessageBytes)
			}
			if cfg.PingInterval > 0 {
				pongWait := 2 * cfg.PingInterval
				_ = conn.SetReadDeadline(time.Now().Add(pongWait))
				conn.SetPongHandler(func(string) error {
					return conn.SetReadDeadline(time.Now().Add(pongWait))
				})
			}

			client := h.Accept(clientID, &fasthttpConn{conn: conn, writeTimeout: cfg.WriteTimeout})
			client.ReadPump()
		})
		if err != nil {
			logger.Error().Err(err).Msg("websocket upgrade failed")
		}
	}
}

// fasthttpConn wraps fasthttp/websocket.Conn to satisfy types.Conn and
// hub.Pinger.
type fasthttpConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (f *fasthttpConn) ReadMessage() (int, []byte, error) { return f.conn.ReadMessage() }
func (f *fasthttpConn) Close() error                      { return f.conn.Close() }

func (f *fasthttpConn) WriteJSON(v any) error {
	if f.writeTimeout > 0 {
		_ = f.conn.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	}
	return f.conn.WriteJSON(v)
}

func (f *fasthttpConn) Ping() error {
	var deadline time.Time
	if f.writeTimeout > 0 {
		deadline = time.Now().Add(f.writeTimeout)
	}
	return f.conn.WriteControl(websocket.PingMessage, nil, deadline)
}
