package oplog

// Undo and Redo are the only transitions of the shared history. Both scan
// from the tail toward the head, so a redo after "draw, undo, draw" targets
// the older undone stroke rather than behaving like a LIFO stack. Clients
// replay the same scan locally and depend on this exact behavior.

// Undo marks the nearest-to-tail live operation deleted and returns its id.
// ok is false when nothing is live.
func (l *Log) Undo() (id string, ok bool) {
	for i := len(l.ops) - 1; i >= 0; i-- {
		if !l.ops[i].Deleted {
			l.ops[i].Deleted = true
			return l.ops[i].ID, true
		}
	}
	return "", false
}

// Redo restores the nearest-to-tail deleted operation and returns its id.
// ok is false when nothing is deleted.
func (l *Log) Redo() (id string, ok bool) {
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i].Deleted {
			l.ops[i].Deleted = false
			return l.ops[i].ID, true
		}
	}
	return "", false
}
