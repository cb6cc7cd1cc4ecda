package client

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/orchestra-mcp/canvas/src/oplog"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
)

// localPrefix marks ids the client made up before the server's ack.
const localPrefix = "local_"

// Mirror is the client's copy of the shared canvas, kept in step by
// applying every server push. Renderers read it through Snapshot.
type Mirror struct {
	mu        sync.RWMutex
	log       *oplog.Log
	users     []types.UserInfo
	cursors   map[string]types.Cursor
	selfID    string
	selfColor string
	lastError string
}

// View is a consistent copy of the mirror.
type View struct {
	Operations []types.Operation
	Users      []types.UserInfo
	Cursors    map[string]types.Cursor
	UserID     string
	Color      string
	LastError  string
}

// Visible returns the operations a renderer should draw.
func (v View) Visible() []types.Operation {
	out := make([]types.Operation, 0, len(v.Operations))
	for _, op := range v.Operations {
		if !op.Deleted {
			out = append(out, op)
		}
	}
	return out
}

// ColorOf returns a user's presence color.
func (v View) ColorOf(userID string) (string, bool) {
	for _, u := range v.Users {
		if u.UserID == userID {
			return u.Color, true
		}
	}
	return "", false
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{
		log:     oplog.New(),
		cursors: make(map[string]types.Cursor),
	}
}

// Apply folds one server message into the mirror.
func (m *Mirror) Apply(msg protocol.Outbound) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.Dispatch(applier{m})
}

// AddLocal records a stroke drawn on this client under a provisional id.
// The server never echoes a draw to its author, so the stroke is mirrored
// here and renamed when the ack arrives.
func (m *Mirror) AddLocal(stroke types.Stroke, timestamp int64) types.Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	op := types.Operation{
		ID:        localPrefix + uuid.NewString(),
		UserID:    m.selfID,
		Timestamp: timestamp,
		Data:      stroke,
	}
	m.log.Insert(op)
	return op
}

// DropLocal takes back a provisional stroke that never reached the server.
// Committed ids are left alone.
func (m *Mirror) DropLocal(id string) bool {
	if !strings.HasPrefix(id, localPrefix) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.log.Remove(id)
}

// Snapshot returns a copy of the mirror.
func (m *Mirror) Snapshot() View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]types.UserInfo, len(m.users))
	copy(users, m.users)
	cursors := make(map[string]types.Cursor, len(m.cursors))
	for id, c := range m.cursors {
		cursors[id] = c
	}
	return View{
		Operations: m.log.Snapshot(),
		Users:      users,
		Cursors:    cursors,
		UserID:     m.selfID,
		Color:      m.selfColor,
		LastError:  m.lastError,
	}
}

// applier mutates a locked mirror.
type applier struct{ m *Mirror }

var _ protocol.OutboundHandler = applier{}

func (a applier) HandleInit(msg protocol.Init) {
	a.m.log.Reset(msg.Operations)
	a.m.users = msg.Users
	a.m.selfID = msg.YourUserID
	a.m.selfColor = msg.YourColor
	a.m.cursors = make(map[string]types.Cursor)
	a.m.lastError = ""
}

func (a applier) HandleDrawn(msg protocol.Drawn) {
	a.m.log.Insert(msg.Operation)
}

func (a applier) HandleAck(msg protocol.Ack) {
	a.m.log.Rename(msg.ClientOpID, msg.OperationID)
}

func (a applier) HandleCursorMoved(msg protocol.CursorMoved) {
	a.m.cursors[msg.UserID] = msg.Position
}

// Undo and redo name the operation the server flipped. A local stroke that
// has not been acked yet is unknown by that id, so the mirror falls back to
// the server's own tail scan.
func (a applier) HandleUndone(msg protocol.Undone) {
	if !a.m.log.SetDeleted(msg.OperationID, true) {
		a.m.log.Undo()
	}
}

func (a applier) HandleRedone(msg protocol.Redone) {
	if !a.m.log.SetDeleted(msg.OperationID, false) {
		a.m.log.Redo()
	}
}

func (a applier) HandleCleared(protocol.Cleared) {
	a.m.log.ClearAll()
}

func (a applier) HandleUsers(msg protocol.Users) {
	a.m.users = msg.Users
	present := make(map[string]bool, len(msg.Users))
	for _, u := range msg.Users {
		present[u.UserID] = true
	}
	for id := range a.m.cursors {
		if !present[id] {
			delete(a.m.cursors, id)
		}
	}
}

func (a applier) HandleError(msg protocol.Error) {
	a.m.lastError = msg.Message
}
