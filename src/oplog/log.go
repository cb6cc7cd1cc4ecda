// Package oplog holds the authoritative drawing history: an append-only
// sequence of operations whose only mutable field is the deleted flag.
//
// A Log is not safe for concurrent use. The server serializes every
// mutation through the hub loop; client mirrors own their log outright.
package oplog

import (
	"errors"

	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/segmentio/ksuid"
)

// ErrEmptyStroke rejects a stroke with no points.
var ErrEmptyStroke = errors.New("stroke has no points")

// IDFunc issues operation ids.
type IDFunc func() string

// NewID returns a ksuid: a second-resolution timestamp followed by random
// bytes, so ids sort roughly by creation time and never collide.
func NewID() string { return ksuid.New().String() }

// Log is an ordered operation history.
type Log struct {
	ops   []types.Operation
	index map[string]int
	newID IDFunc
}

// New creates an empty log that issues ksuid operation ids.
func New() *Log { return NewWithIDs(NewID) }

// NewWithIDs creates an empty log with a custom id source.
func NewWithIDs(newID IDFunc) *Log {
	return &Log{
		index: make(map[string]int),
		newID: newID,
	}
}

// Append commits a stroke at the tail and returns the stored operation.
// The log is left untouched when the stroke has no points.
func (l *Log) Append(authorID string, timestamp int64, stroke types.Stroke) (types.Operation, error) {
	if len(stroke.Points) == 0 {
		return types.Operation{}, ErrEmptyStroke
	}
	if stroke.Tool == "" {
		stroke.Tool = types.ToolBrush
	}
	op := types.Operation{
		ID:        l.newID(),
		UserID:    authorID,
		Timestamp: timestamp,
		Data:      stroke,
	}
	l.Insert(op)
	return op, nil
}

// Insert places an already identified operation at the tail. Mirrors use it
// to replay operations the server committed.
func (l *Log) Insert(op types.Operation) {
	l.index[op.ID] = len(l.ops)
	l.ops = append(l.ops, op)
}

// Reset replaces the whole history, as on a fresh init.
func (l *Log) Reset(ops []types.Operation) {
	l.ops = make([]types.Operation, 0, len(ops))
	l.index = make(map[string]int, len(ops))
	for _, op := range ops {
		l.Insert(op)
	}
}

// ClearAll marks every existing operation deleted and reports how many
// changed. There is no inverse: redo restores operations one at a time.
func (l *Log) ClearAll() int {
	n := 0
	for i := range l.ops {
		if !l.ops[i].Deleted {
			l.ops[i].Deleted = true
			n++
		}
	}
	return n
}

// SetDeleted sets the deleted flag of one operation.
func (l *Log) SetDeleted(id string, deleted bool) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.ops[i].Deleted = deleted
	return true
}

// Rename swaps a provisional id for the committed one.
func (l *Log) Rename(oldID, newID string) bool {
	i, ok := l.index[oldID]
	if !ok {
		return false
	}
	delete(l.index, oldID)
	l.ops[i].ID = newID
	l.index[newID] = i
	return true
}

// Remove drops one operation and reindexes the ones after it. Only mirrors
// use it, to take back a local stroke the server never received.
func (l *Log) Remove(id string) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	delete(l.index, id)
	l.ops = append(l.ops[:i], l.ops[i+1:]...)
	for j := i; j < len(l.ops); j++ {
		l.index[l.ops[j].ID] = j
	}
	return true
}

// Get returns the operation with the given id.
func (l *Log) Get(id string) (types.Operation, bool) {
	i, ok := l.index[id]
	if !ok {
		return types.Operation{}, false
	}
	return l.ops[i], true
}

// Snapshot returns a copy of the full history, deleted entries included.
func (l *Log) Snapshot() []types.Operation {
	out := make([]types.Operation, len(l.ops))
	copy(out, l.ops)
	return out
}

// Visible returns the non-deleted operations in log order.
func (l *Log) Visible() []types.Operation {
	out := make([]types.Operation, 0, len(l.ops))
	for _, op := range l.ops {
		if !op.Deleted {
			out = append(out, op)
		}
	}
	return out
}

// Len returns the number of operations, deleted or not.
func (l *Log) Len() int { return len(l.ops) }

// Live returns the number of non-deleted operations.
func (l *Log) Live() int {
	n := 0
	for _, op := range l.ops {
		if !op.Deleted {
			n++
		}
	}
	return n
}
