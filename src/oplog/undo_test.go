package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoOnEmptyLogIsNoop(t *testing.T) {
	l := New()
	id, ok := l.Undo()
	assert.False(t, ok)
	assert.Empty(t, id)

	id, ok = l.Redo()
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestUndoDeletesMostRecentLiveOperation(t *testing.T) {
	l := NewWithIDs(seqIDs())
	for i := 0; i < 3; i++ {
		_, _ = l.Append("u1", 0, stroke(2))
	}

	id, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, "op3", id)

	id, ok = l.Undo()
	require.True(t, ok)
	assert.Equal(t, "op2", id)

	assert.Equal(t, []string{"op1"}, ids(l.Visible()))
}

func TestUndoOnFullyDeletedLogIsNoop(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1))
	_, _ = l.Append("u1", 0, stroke(1))
	l.ClearAll()

	_, ok := l.Undo()
	assert.False(t, ok)
	assert.Equal(t, 0, l.Live())
}

func TestRedoRestoresWhatUndoRemoved(t *testing.T) {
	l := NewWithIDs(seqIDs())
	for i := 0; i < 3; i++ {
		_, _ = l.Append("u1", 0, stroke(1))
	}

	undone, _ := l.Undo()
	redone, ok := l.Redo()
	require.True(t, ok)
	assert.Equal(t, undone, redone)
	assert.Equal(t, 3, l.Live())

	_, ok = l.Redo()
	assert.False(t, ok, "nothing left to redo")
}

func TestRedoAfterNewDrawTargetsNearestDeleted(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1)) // op1
	_, _ = l.Append("u1", 0, stroke(1)) // op2

	undone, _ := l.Undo()
	assert.Equal(t, "op2", undone)

	_, _ = l.Append("u2", 0, stroke(1)) // op3

	// Redo does not touch the just-appended op3; it restores op2.
	id, ok := l.Redo()
	require.True(t, ok)
	assert.Equal(t, "op2", id)
	assert.Equal(t, []string{"op1", "op2", "op3"}, ids(l.Visible()))
}

func TestRedoIsNotAStack(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1)) // op1
	_, _ = l.Append("u1", 0, stroke(1)) // op2
	_, _ = l.Append("u1", 0, stroke(1)) // op3

	// Undo op3 and op2, draw op4, undo op4.
	l.Undo()
	l.Undo()
	_, _ = l.Append("u1", 0, stroke(1))
	l.Undo()

	// A LIFO stack would redo op4 then op2 then op3; the tail scan visits
	// op4, op3, op2 in that order.
	var got []string
	for {
		id, ok := l.Redo()
		if !ok {
			break
		}
		got = append(got, id)
	}
	assert.Equal(t, []string{"op4", "op3", "op2"}, got)
}

func TestRedoAfterClearRestoresOneAtATime(t *testing.T) {
	l := NewWithIDs(seqIDs())
	_, _ = l.Append("u1", 0, stroke(1))
	_, _ = l.Append("u1", 0, stroke(1))
	l.ClearAll()

	id, ok := l.Redo()
	require.True(t, ok)
	assert.Equal(t, "op2", id)
	assert.Equal(t, 1, l.Live())
}
