package types

import "time"

// Tool is the drawing instrument that produced a stroke.
type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
)

// Point is a single canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is the drawing payload of an operation.
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Tool   Tool    `json:"tool"`
}

// Operation is one committed drawing action in the shared log.
// Deleted is the only field that changes after the operation is appended.
type Operation struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
	Data      Stroke `json:"data"`
	Deleted   bool   `json:"deleted"`
}

// UserInfo is the public presence record of a session.
type UserInfo struct {
	UserID string `json:"userId"`
	Color  string `json:"color"`
}

// Cursor is an ephemeral pointer position.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ConnInfo holds metadata about a connected WebSocket client.
type ConnInfo struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connected_at"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}
