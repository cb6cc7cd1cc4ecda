package protocol

import (
	"fmt"

	"github.com/orchestra-mcp/canvas/src/types"
)

// Header carries the fields every client frame is stamped with.
type Header struct {
	UserID    string
	Timestamp int64
}

// Inbound is a decoded client-to-server message.
type Inbound interface {
	Kind() Kind
	Sender() Header
	Dispatch(h InboundHandler)
	Frame() Frame
}

// InboundHandler receives each inbound kind. Implementations must handle
// every kind; there is no default case.
type InboundHandler interface {
	HandleRegister(m Register)
	HandleDraw(m Draw)
	HandleCursor(m CursorMove)
	HandleUndo(m Undo)
	HandleRedo(m Redo)
	HandleClear(m Clear)
}

// Register announces the sender's userId and creates its session.
type Register struct{ Header }

// Draw submits one stroke for append. ClientOpID is the sender's
// provisional id, echoed back in an ack once the stroke is committed.
type Draw struct {
	Header
	Stroke     types.Stroke
	ClientOpID string
}

// CursorMove is an ephemeral pointer update.
type CursorMove struct {
	Header
	Position types.Cursor
}

// Undo requests the global tail-scan undo.
type Undo struct{ Header }

// Redo requests the global tail-scan redo.
type Redo struct{ Header }

// Clear requests that every operation be marked deleted.
type Clear struct{ Header }

func (m Register) Kind() Kind   { return KindRegister }
func (m Draw) Kind() Kind       { return KindDraw }
func (m CursorMove) Kind() Kind { return KindCursor }
func (m Undo) Kind() Kind       { return KindUndo }
func (m Redo) Kind() Kind       { return KindRedo }
func (m Clear) Kind() Kind      { return KindClear }

func (h Header) Sender() Header { return h }

func (m Register) Dispatch(h InboundHandler)   { h.HandleRegister(m) }
func (m Draw) Dispatch(h InboundHandler)       { h.HandleDraw(m) }
func (m CursorMove) Dispatch(h InboundHandler) { h.HandleCursor(m) }
func (m Undo) Dispatch(h InboundHandler)       { h.HandleUndo(m) }
func (m Redo) Dispatch(h InboundHandler)       { h.HandleRedo(m) }
func (m Clear) Dispatch(h InboundHandler)      { h.HandleClear(m) }

// drawData is the wire shape of a draw request's data field.
type drawData struct {
	types.Stroke
	ClientOpID string `json:"clientOpId,omitempty"`
}

func (h Header) frame(k Kind) Frame {
	return Frame{Type: k, UserID: h.UserID, Timestamp: h.Timestamp}
}

func (m Register) Frame() Frame { return m.frame(KindRegister) }
func (m Undo) Frame() Frame     { return m.frame(KindUndo) }
func (m Redo) Frame() Frame     { return m.frame(KindRedo) }
func (m Clear) Frame() Frame    { return m.frame(KindClear) }

func (m Draw) Frame() Frame {
	f := m.frame(KindDraw)
	f.Data = drawData{Stroke: m.Stroke, ClientOpID: m.ClientOpID}
	return f
}

func (m CursorMove) Frame() Frame {
	f := m.frame(KindCursor)
	f.Data = m.Position
	return f
}

// DecodeInbound parses one client frame. It returns an error wrapping
// ErrMalformed when the frame cannot be decoded and ErrUnknownType when the
// tag is not a client message kind.
func DecodeInbound(raw []byte) (Inbound, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	hdr := Header{UserID: env.UserID, Timestamp: env.Timestamp}

	switch env.Type {
	case KindRegister:
		if env.UserID == "" {
			return nil, fmt.Errorf("%w: register requires userId", ErrMalformed)
		}
		return Register{Header: hdr}, nil
	case KindDraw:
		var d drawData
		if err := decodeData(env, &d); err != nil {
			return nil, err
		}
		return Draw{Header: hdr, Stroke: d.Stroke, ClientOpID: d.ClientOpID}, nil
	case KindCursor:
		var c types.Cursor
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return CursorMove{Header: hdr, Position: c}, nil
	case KindUndo:
		return Undo{Header: hdr}, nil
	case KindRedo:
		return Redo{Header: hdr}, nil
	case KindClear:
		return Clear{Header: hdr}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
