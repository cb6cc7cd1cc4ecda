package oplog

import (
	"fmt"
	"testing"

	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seqIDs issues op1, op2, ... so tests can name operations.
func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("op%d", n)
	}
}

func stroke(n int) types.Stroke {
	pts := make([]types.Point, n)
	for i := range pts {
		pts[i] = types.Point{X: float64(i), Y: float64(i)}
	}
	return types.Stroke{Points: pts, Color: "#000000", Width: 2, Tool: types.ToolBrush}
}

func ids(ops []types.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.ID
	}
	return out
}

func TestAppendKeepsArrivalOrderNotTimestampOrder(t *testing.T) {
	l := NewWithIDs(seqIDs())

	// Timestamps deliberately run backwards.
	for i, ts := range []int64{500, 300, 900, 100} {
		op, err := l.Append(fmt.Sprintf("u%d", i), ts, stroke(2))
		require.NoError(t, err)
		assert.False(t, op.Deleted)
	}

	snap := l.Snapshot()
	assert.Equal(t, []string{"op1", "op2", "op3", "op4"}, ids(snap))
	assert.Equal(t, int64(500), snap[0].Timestamp)
	assert.Equal(t, "u3", snap[3].UserID)
}

func TestAppendRejectsEmptyStroke(t *testing.T) {
	l := New()
	_, err := l.Append("u1", 0, types.Stroke{Color: "#fff"})
	assert.ErrorIs(t, err, ErrEmptyStroke)
	assert.Equal(t, 0, l.Len())
}

func TestAppendDefaultsTool(t *testing.T) {
	l := New()
	op, err := l.Append("u1", 0, types.Stroke{Points: []types.Point{{X: 1, Y: 1}}})
	require.NoError(t, err)
	assert.Equal(t, types.ToolBrush, op.Data.Tool)
}

func TestNewIDsAreUnique(t *testing.T) {
	l := New()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		op, err := l.Append("u1", 0, stroke(1))
		require.NoError(t, err)
		require.False(t, seen[op.ID], "duplicate id %s", op.ID)
		seen[op.ID] = true
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1))

	snap := l.Snapshot()
	snap[0].Deleted = true
	assert.Equal(t, 1, l.Live())
}

func TestClearAllMarksEverythingDeleted(t *testing.T) {
	l := NewWithIDs(seqIDs())
	for i := 0; i < 3; i++ {
		_, _ = l.Append("u1", 0, stroke(1))
	}
	l.Undo()

	assert.Equal(t, 2, l.ClearAll())
	assert.Equal(t, 0, l.Live())
	assert.Equal(t, 3, l.Len())

	// Operations appended after a clear are unaffected by it.
	op, err := l.Append("u2", 0, stroke(1))
	require.NoError(t, err)
	assert.Equal(t, []string{op.ID}, ids(l.Visible()))
}

func TestRenameAndSetDeleted(t *testing.T) {
	l := New()
	l.Insert(types.Operation{ID: "local_1", Data: stroke(1)})

	assert.True(t, l.Rename("local_1", "srv_1"))
	assert.False(t, l.Rename("local_1", "srv_2"))

	_, ok := l.Get("local_1")
	assert.False(t, ok)

	assert.True(t, l.SetDeleted("srv_1", true))
	op, ok := l.Get("srv_1")
	require.True(t, ok)
	assert.True(t, op.Deleted)

	assert.False(t, l.SetDeleted("missing", true))
}

func TestResetReplacesHistory(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1))

	l.Reset([]types.Operation{{ID: "a", Deleted: true}, {ID: "b"}})
	assert.Equal(t, []string{"a", "b"}, ids(l.Snapshot()))
	assert.Equal(t, 1, l.Live())

	_, ok := l.Get("op1")
	assert.False(t, ok)
}

func TestRemoveReindexesTail(t *testing.T) {
	l := NewWithIDs(seqIDs())
	for range 3 {
		_, err := l.Append("u1", 1, stroke(1))
		require.NoError(t, err)
	}

	require.True(t, l.Remove("op2"))
	assert.False(t, l.Remove("op2"))
	assert.Equal(t, []string{"op1", "op3"}, ids(l.Snapshot()))

	require.True(t, l.SetDeleted("op3", true))
	op, ok := l.Get("op3")
	require.True(t, ok)
	assert.True(t, op.Deleted)
	assert.Equal(t, 2, l.Len())
}
