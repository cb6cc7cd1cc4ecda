package protocol

import (
	"fmt"

	"github.com/orchestra-mcp/canvas/src/types"
)

// Outbound is a server-to-client message.
type Outbound interface {
	Kind() Kind
	Dispatch(h OutboundHandler)
	Frame() Frame
}

// OutboundHandler receives each outbound kind.
type OutboundHandler interface {
	HandleInit(m Init)
	HandleDrawn(m Drawn)
	HandleAck(m Ack)
	HandleCursorMoved(m CursorMoved)
	HandleUndone(m Undone)
	HandleRedone(m Redone)
	HandleCleared(m Cleared)
	HandleUsers(m Users)
	HandleError(m Error)
}

// Init is the full log and roster sent once to a registrant.
type Init struct {
	Operations []types.Operation `json:"operations"`
	Users      []types.UserInfo  `json:"users"`
	YourUserID string            `json:"yourUserId"`
	YourColor  string            `json:"yourColor"`
}

// Drawn relays a newly appended operation.
type Drawn struct{ Operation types.Operation }

// Ack tells an author which committed id replaced its provisional one.
type Ack struct {
	OperationID string
	ClientOpID  string
}

// CursorMoved relays another user's pointer position.
type CursorMoved struct {
	UserID   string
	Position types.Cursor
}

// Undone names the operation an undo marked deleted.
type Undone struct{ OperationID string }

// Redone names the operation a redo restored.
type Redone struct{ OperationID string }

// Cleared tells every client to mark its whole mirror deleted.
type Cleared struct{}

// Users is the full presence roster.
type Users struct{ Users []types.UserInfo }

// Error is a direct notice about a rejected frame.
type Error struct{ Message string }

func (m Init) Kind() Kind        { return KindInit }
func (m Drawn) Kind() Kind       { return KindDraw }
func (m Ack) Kind() Kind         { return KindAck }
func (m CursorMoved) Kind() Kind { return KindCursor }
func (m Undone) Kind() Kind      { return KindUndo }
func (m Redone) Kind() Kind      { return KindRedo }
func (m Cleared) Kind() Kind     { return KindClear }
func (m Users) Kind() Kind       { return KindUsers }
func (m Error) Kind() Kind       { return KindError }

func (m Init) Dispatch(h OutboundHandler)        { h.HandleInit(m) }
func (m Drawn) Dispatch(h OutboundHandler)       { h.HandleDrawn(m) }
func (m Ack) Dispatch(h OutboundHandler)         { h.HandleAck(m) }
func (m CursorMoved) Dispatch(h OutboundHandler) { h.HandleCursorMoved(m) }
func (m Undone) Dispatch(h OutboundHandler)      { h.HandleUndone(m) }
func (m Redone) Dispatch(h OutboundHandler)      { h.HandleRedone(m) }
func (m Cleared) Dispatch(h OutboundHandler)     { h.HandleCleared(m) }
func (m Users) Dispatch(h OutboundHandler)       { h.HandleUsers(m) }
func (m Error) Dispatch(h OutboundHandler)       { h.HandleError(m) }

func (m Init) Frame() Frame {
	if m.Operations == nil {
		m.Operations = []types.Operation{}
	}
	if m.Users == nil {
		m.Users = []types.UserInfo{}
	}
	return Frame{Type: KindInit, Data: m}
}

func (m Drawn) Frame() Frame { return Frame{Type: KindDraw, Data: m.Operation} }

func (m Ack) Frame() Frame {
	return Frame{Type: KindAck, OperationID: m.OperationID, ClientOpID: m.ClientOpID}
}

func (m CursorMoved) Frame() Frame {
	return Frame{Type: KindCursor, UserID: m.UserID, Data: m.Position}
}

func (m Undone) Frame() Frame  { return Frame{Type: KindUndo, OperationID: m.OperationID} }
func (m Redone) Frame() Frame  { return Frame{Type: KindRedo, OperationID: m.OperationID} }
func (m Cleared) Frame() Frame { return Frame{Type: KindClear} }

func (m Users) Frame() Frame {
	users := m.Users
	if users == nil {
		users = []types.UserInfo{}
	}
	return Frame{Type: KindUsers, Data: users}
}

func (m Error) Frame() Frame { return Frame{Type: KindError, Message: m.Message} }

// DecodeOutbound parses one server frame on the client side.
func DecodeOutbound(raw []byte) (Outbound, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case KindInit:
		var m Init
		if err := decodeData(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case KindDraw:
		var op types.Operation
		if err := decodeData(env, &op); err != nil {
			return nil, err
		}
		return Drawn{Operation: op}, nil
	case KindAck:
		return Ack{OperationID: env.OperationID, ClientOpID: env.ClientOpID}, nil
	case KindCursor:
		var c types.Cursor
		if err := decodeData(env, &c); err != nil {
			return nil, err
		}
		return CursorMoved{UserID: env.UserID, Position: c}, nil
	case KindUndo:
		return Undone{OperationID: env.OperationID}, nil
	case KindRedo:
		return Redone{OperationID: env.OperationID}, nil
	case KindClear:
		return Cleared{}, nil
	case KindUsers:
		var users []types.UserInfo
		if err := decodeData(env, &users); err != nil {
			return nil, err
		}
		return Users{Users: users}, nil
	case KindError:
		return Error{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}
