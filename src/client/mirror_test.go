package client

import (
	"testing"

	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func op(id string, deleted bool) types.Operation {
	return types.Operation{ID: id, UserID: "user_a", Timestamp: 1, Data: stroke(), Deleted: deleted}
}

func initMirror(ops ...types.Operation) *Mirror {
	m := NewMirror()
	m.Apply(protocol.Init{
		Operations: ops,
		Users:      []types.UserInfo{{UserID: "user_me", Color: "#FF6B6B"}, {UserID: "user_a", Color: "#4ECDC4"}},
		YourUserID: "user_me",
		YourColor:  "#FF6B6B",
	})
	return m
}

func TestMirrorInitReplacesState(t *testing.T) {
	m := NewMirror()
	m.Apply(protocol.Drawn{Operation: op("stale", false)})
	m.Apply(protocol.CursorMoved{UserID: "user_a", Position: types.Cursor{X: 1, Y: 1}})
	m.Apply(protocol.Error{Message: "Invalid message format"})

	m.Apply(protocol.Init{
		Operations: []types.Operation{op("op1", false), op("op2", true)},
		YourUserID: "user_me",
		YourColor:  "#45B7D1",
	})

	v := m.Snapshot()
	require.Len(t, v.Operations, 2)
	assert.Equal(t, "op1", v.Operations[0].ID)
	assert.True(t, v.Operations[1].Deleted)
	assert.Len(t, v.Visible(), 1)
	assert.Empty(t, v.Cursors)
	assert.Empty(t, v.LastError)
	assert.Equal(t, "user_me", v.UserID)
	assert.Equal(t, "#45B7D1", v.Color)
}

func TestMirrorLocalDrawRenamedByAck(t *testing.T) {
	m := initMirror()
	local := m.AddLocal(stroke(), 42)
	assert.Equal(t, "user_me", local.UserID)

	m.Apply(protocol.Ack{OperationID: "op7", ClientOpID: local.ID})

	v := m.Snapshot()
	require.Len(t, v.Operations, 1)
	assert.Equal(t, "op7", v.Operations[0].ID)
	assert.Equal(t, int64(42), v.Operations[0].Timestamp)
}

func TestMirrorDropLocalOnlyTakesProvisionalIDs(t *testing.T) {
	m := initMirror(op("op1", false))
	local := m.AddLocal(stroke(), 42)

	assert.False(t, m.DropLocal("op1"))
	assert.True(t, m.DropLocal(local.ID))
	assert.False(t, m.DropLocal(local.ID))

	v := m.Snapshot()
	require.Len(t, v.Operations, 1)
	assert.Equal(t, "op1", v.Operations[0].ID)
}

func TestMirrorUndoRedoByID(t *testing.T) {
	m := initMirror(op("op1", false), op("op2", false))

	m.Apply(protocol.Undone{OperationID: "op1"})
	v := m.Snapshot()
	assert.True(t, v.Operations[0].Deleted)
	assert.False(t, v.Operations[1].Deleted)

	m.Apply(protocol.Redone{OperationID: "op1"})
	assert.Len(t, m.Snapshot().Visible(), 2)
}

func TestMirrorUndoFallsBackToTailScan(t *testing.T) {
	m := initMirror(op("op1", false))
	m.AddLocal(stroke(), 2)

	// The server undid our stroke before the ack reached us.
	m.Apply(protocol.Undone{OperationID: "op2"})
	v := m.Snapshot()
	require.Len(t, v.Operations, 2)
	assert.False(t, v.Operations[0].Deleted)
	assert.True(t, v.Operations[1].Deleted)

	m.Apply(protocol.Redone{OperationID: "op2"})
	assert.Len(t, m.Snapshot().Visible(), 2)
}

func TestMirrorClear(t *testing.T) {
	m := initMirror(op("op1", false), op("op2", false))
	m.Apply(protocol.Cleared{})

	v := m.Snapshot()
	assert.Len(t, v.Operations, 2)
	assert.Empty(t, v.Visible())
}

func TestMirrorUsersDropsStaleCursors(t *testing.T) {
	m := initMirror()
	m.Apply(protocol.CursorMoved{UserID: "user_a", Position: types.Cursor{X: 5, Y: 6}})
	assert.Contains(t, m.Snapshot().Cursors, "user_a")

	m.Apply(protocol.Users{Users: []types.UserInfo{{UserID: "user_me", Color: "#FF6B6B"}}})

	v := m.Snapshot()
	assert.NotContains(t, v.Cursors, "user_a")
	require.Len(t, v.Users, 1)
	color, ok := v.ColorOf("user_me")
	assert.True(t, ok)
	assert.Equal(t, "#FF6B6B", color)
	_, ok = v.ColorOf("user_a")
	assert.False(t, ok)
}

func TestMirrorRecordsError(t *testing.T) {
	m := initMirror()
	m.Apply(protocol.Error{Message: "Invalid drawing: stroke has no points"})
	assert.Equal(t, "Invalid drawing: stroke has no points", m.Snapshot().LastError)
}

func TestMirrorSnapshotIsACopy(t *testing.T) {
	m := initMirror(op("op1", false))
	v := m.Snapshot()
	v.Operations[0].Deleted = true
	v.Users[0].Color = "#000000"

	again := m.Snapshot()
	assert.False(t, again.Operations[0].Deleted)
	assert.Equal(t, "#FF6B6B", again.Users[0].Color)
}
