package providers

import (
	"errors"
	"fmt"
)

var errNotActive = errors.New("canvas service not initialized")

// ToolDefinition is an operator command exposed under /tools.
type ToolDefinition struct {
	Name        string                                  `json:"name"`
	Description string                                  `json:"description"`
	InputSchema map[string]any                          `json:"input_schema"`
	Handler     func(input map[string]any) (any, error) `json:"-"`
}

// Tools returns the operator tools contributed by the canvas provider.
func (p *CanvasProvider) Tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "list_canvas_clients",
			Description: "List connected websocket clients",
			InputSchema: map[string]any{},
			Handler:     p.toolListClients,
		},
		{
			Name:        "get_canvas_client",
			Description: "Show one connected websocket client",
			InputSchema: map[string]any{
				"id": map[string]any{"type": "string", "description": "Connection id"},
			},
			Handler: p.toolGetClient,
		},
		{
			Name:        "list_canvas_users",
			Description: "List registered users with their presence colors",
			InputSchema: map[string]any{},
			Handler:     p.toolListUsers,
		},
		{
			Name:        "canvas_stats",
			Description: "Show operation and session counts",
			InputSchema: map[string]any{},
			Handler:     p.toolStats,
		},
	}
}

func (p *CanvasProvider) tool(name string) (ToolDefinition, bool) {
	for _, t := range p.Tools() {
		if t.Name == name {
			return t, true
		}
	}
	return ToolDefinition{}, false
}

func (p *CanvasProvider) toolListClients(_ map[string]any) (any, error) {
	if p.service == nil {
		return nil, errNotActive
	}
	clients := p.service.GetConnectedClients()
	infos := make([]any, 0, len(clients))
	for _, id := range clients {
		info, err := p.service.GetClientInfo(id)
		if err == nil {
			infos = append(infos, info)
		}
	}
	return map[string]any{
		"clients": infos,
		"count":   len(infos),
	}, nil
}

func (p *CanvasProvider) toolGetClient(input map[string]any) (any, error) {
	if p.service == nil {
		return nil, errNotActive
	}
	id, _ := input["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	return p.service.GetClientInfo(id)
}

func (p *CanvasProvider) toolListUsers(_ map[string]any) (any, error) {
	if p.service == nil {
		return nil, errNotActive
	}
	users := p.service.Users()
	return map[string]any{"users": users, "count": len(users)}, nil
}

func (p *CanvasProvider) toolStats(_ map[string]any) (any, error) {
	if p.service == nil {
		return nil, errNotActive
	}
	return p.service.Stats(), nil
}
