package engine

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/orchestra-mcp/canvas/src/oplog"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	n := 0
	log := oplog.NewWithIDs(func() string {
		n++
		return fmt.Sprintf("op%d", n)
	})
	reg := session.NewRegistry(rand.New(rand.NewPCG(7, 7)))
	return New(log, reg, zerolog.Nop())
}

func drawFrame(userID string, ts int64, points int) []byte {
	pts := "["
	for i := 0; i < points; i++ {
		if i > 0 {
			pts += ","
		}
		pts += fmt.Sprintf(`{"x":%d,"y":%d}`, i, i)
	}
	pts += "]"
	return []byte(fmt.Sprintf(
		`{"type":"draw","userId":%q,"timestamp":%d,"data":{"points":%s,"color":"#000000","width":2,"tool":"brush"}}`,
		userID, ts, pts))
}

func frame(kind, userID string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"userId":%q}`, kind, userID))
}

func register(t *testing.T, e *Engine, userID, connID string) Result {
	t.Helper()
	res := e.Handle(connID, frame("register", userID))
	require.NoError(t, res.Err)
	return res
}

func TestRegisterSendsInitThenRoster(t *testing.T) {
	e := newTestEngine()
	res := register(t, e, "user_ab12cd", "conn-a")

	require.Len(t, res.Deliveries, 2)
	assert.Equal(t, protocol.KindRegister, res.Kind)

	initDelivery := res.Deliveries[0]
	assert.False(t, initDelivery.Broadcast)
	assert.Equal(t, "conn-a", initDelivery.ConnID)

	init, ok := initDelivery.Message.(protocol.Init)
	require.True(t, ok)
	assert.Equal(t, "user_ab12cd", init.YourUserID)
	assert.Contains(t, session.Palette, init.YourColor)
	assert.Empty(t, init.Operations)
	require.Len(t, init.Users, 1)
	assert.Equal(t, "user_ab12cd", init.Users[0].UserID)

	roster := res.Deliveries[1]
	assert.True(t, roster.Broadcast)
	assert.Empty(t, roster.Exclude)
	assert.IsType(t, protocol.Users{}, roster.Message)
}

func TestDrawBroadcastExcludesAuthor(t *testing.T) {
	e := newTestEngine()
	register(t, e, "A", "ca")

	res := e.Handle("ca", drawFrame("A", 100, 3))
	require.NoError(t, res.Err)
	require.Len(t, res.Deliveries, 1)

	d := res.Deliveries[0]
	assert.True(t, d.Broadcast)
	assert.Equal(t, "A", d.Exclude)

	drawn := d.Message.(protocol.Drawn)
	assert.Equal(t, "op1", drawn.Operation.ID)
	assert.Equal(t, "A", drawn.Operation.UserID)
	assert.Len(t, drawn.Operation.Data.Points, 3)
	assert.False(t, drawn.Operation.Deleted)
}

func TestDrawWithClientOpIDIsAcked(t *testing.T) {
	e := newTestEngine()
	raw := []byte(`{"type":"draw","userId":"A","data":{"points":[{"x":1,"y":1}],"clientOpId":"local_7"}}`)

	res := e.Handle("ca", raw)
	require.Len(t, res.Deliveries, 2)

	ack := res.Deliveries[1]
	assert.False(t, ack.Broadcast)
	assert.Equal(t, "ca", ack.ConnID)
	assert.Equal(t, protocol.Ack{OperationID: "op1", ClientOpID: "local_7"}, ack.Message)
}

func TestDrawOrderFollowsArrival(t *testing.T) {
	e := newTestEngine()
	e.Handle("ca", drawFrame("A", 900, 1))
	e.Handle("cb", drawFrame("B", 100, 1))
	e.Handle("ca", drawFrame("A", 500, 1))

	res := register(t, e, "C", "cc")
	init := res.Deliveries[0].Message.(protocol.Init)
	require.Len(t, init.Operations, 3)
	assert.Equal(t, "A", init.Operations[0].UserID)
	assert.Equal(t, "B", init.Operations[1].UserID)
	assert.Equal(t, int64(500), init.Operations[2].Timestamp)
}

func TestEmptyStrokeIsRejectedDirectly(t *testing.T) {
	e := newTestEngine()
	res := e.Handle("ca", []byte(`{"type":"draw","userId":"A","data":{"points":[]}}`))

	assert.ErrorIs(t, res.Err, oplog.ErrEmptyStroke)
	require.Len(t, res.Deliveries, 1)
	assert.False(t, res.Deliveries[0].Broadcast)
	assert.Equal(t, "ca", res.Deliveries[0].ConnID)
	assert.IsType(t, protocol.Error{}, res.Deliveries[0].Message)
	assert.Equal(t, 0, e.Stats().Operations)
}

func TestMalformedFrameRepliesOnlyToSender(t *testing.T) {
	e := newTestEngine()
	register(t, e, "A", "ca")
	register(t, e, "B", "cb")

	res := e.Handle("ca", []byte(`{"type":"draw",`))
	assert.ErrorIs(t, res.Err, protocol.ErrMalformed)
	assert.Empty(t, res.Kind)
	require.Len(t, res.Deliveries, 1)
	assert.Equal(t, "ca", res.Deliveries[0].ConnID)
	assert.Equal(t, protocol.Error{Message: "Invalid message format"}, res.Deliveries[0].Message)
	assert.Equal(t, 0, e.Stats().Operations)
}

func TestUnknownTypeIsDroppedSilently(t *testing.T) {
	e := newTestEngine()
	res := e.Handle("ca", frame("wave", "A"))
	assert.ErrorIs(t, res.Err, protocol.ErrUnknownType)
	assert.Empty(t, res.Deliveries)
}

func TestUndoRedoBroadcastToEveryone(t *testing.T) {
	e := newTestEngine()
	e.Handle("ca", drawFrame("A", 0, 3))

	res := e.Handle("cb", frame("undo", "B"))
	require.Len(t, res.Deliveries, 1)
	assert.True(t, res.Deliveries[0].Broadcast)
	assert.Empty(t, res.Deliveries[0].Exclude)
	assert.Equal(t, protocol.Undone{OperationID: "op1"}, res.Deliveries[0].Message)

	res = e.Handle("ca", frame("redo", "A"))
	require.Len(t, res.Deliveries, 1)
	assert.Empty(t, res.Deliveries[0].Exclude)
	assert.Equal(t, protocol.Redone{OperationID: "op1"}, res.Deliveries[0].Message)
}

func TestUndoOnEmptyLogEmitsNothing(t *testing.T) {
	e := newTestEngine()
	assert.Empty(t, e.Handle("ca", frame("undo", "A")).Deliveries)
	assert.Empty(t, e.Handle("ca", frame("redo", "A")).Deliveries)
}

func TestClearReachesRequester(t *testing.T) {
	e := newTestEngine()
	e.Handle("ca", drawFrame("A", 0, 1))
	e.Handle("ca", drawFrame("A", 0, 1))

	res := e.Handle("ca", frame("clear", "A"))
	require.Len(t, res.Deliveries, 1)
	assert.True(t, res.Deliveries[0].Broadcast)
	assert.Empty(t, res.Deliveries[0].Exclude)
	assert.Equal(t, protocol.Cleared{}, res.Deliveries[0].Message)

	assert.Equal(t, Stats{Operations: 2, Live: 0}, e.Stats())
}

func TestInitIncludesDeletedOperations(t *testing.T) {
	e := newTestEngine()
	e.Handle("ca", drawFrame("A", 0, 1))
	e.Handle("ca", drawFrame("A", 0, 1))
	e.Handle("ca", frame("undo", "A"))

	init := register(t, e, "B", "cb").Deliveries[0].Message.(protocol.Init)
	require.Len(t, init.Operations, 2)
	assert.False(t, init.Operations[0].Deleted)
	assert.True(t, init.Operations[1].Deleted)
}

func TestCursorRelayExcludesSender(t *testing.T) {
	e := newTestEngine()
	res := e.Handle("ca", []byte(`{"type":"cursor","userId":"A","data":{"x":10,"y":20}}`))

	require.Len(t, res.Deliveries, 1)
	d := res.Deliveries[0]
	assert.Equal(t, "A", d.Exclude)
	moved := d.Message.(protocol.CursorMoved)
	assert.Equal(t, "A", moved.UserID)
	assert.Equal(t, float64(20), moved.Position.Y)
	assert.Equal(t, 0, e.Stats().Operations)
}

func TestDisconnectAnnouncesRoster(t *testing.T) {
	e := newTestEngine()
	register(t, e, "A", "ca")
	register(t, e, "B", "cb")

	res := e.Disconnect("ca")
	require.Len(t, res.Deliveries, 1)
	users := res.Deliveries[0].Message.(protocol.Users)
	require.Len(t, users.Users, 1)
	assert.Equal(t, "B", users.Users[0].UserID)

	// A connection that never registered changes nothing.
	assert.Empty(t, e.Disconnect("ghost").Deliveries)
}

func TestReRegisterOnNewConnectionSurvivesOldClose(t *testing.T) {
	e := newTestEngine()
	register(t, e, "A", "c-old")
	register(t, e, "A", "c-new")

	assert.Empty(t, e.Disconnect("c-old").Deliveries)
	require.Len(t, e.Sessions(), 1)
	assert.Equal(t, "c-new", e.Sessions()[0].ConnID)
}
