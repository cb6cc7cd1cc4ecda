package engine

import (
	"github.com/orchestra-mcp/canvas/src/protocol"
)

// dispatch applies one decoded message to the engine.
type dispatch struct {
	engine *Engine
	connID string
	res    *Result
}

var _ protocol.InboundHandler = (*dispatch)(nil)

func (d *dispatch) HandleRegister(m protocol.Register) {
	e := d.engine
	s := e.sessions.Register(m.UserID, d.connID)

	e.logger.Info().
		Str("user_id", s.UserID).
		Str("color", s.Color).
		Str("conn_id", d.connID).
		Msg("user registered")

	d.res.direct(d.connID, protocol.Init{
		Operations: e.log.Snapshot(),
		Users:      e.sessions.List(),
		YourUserID: s.UserID,
		YourColor:  s.Color,
	})
	d.res.broadcast(protocol.Users{Users: e.sessions.List()}, "")
}

func (d *dispatch) HandleDraw(m protocol.Draw) {
	e := d.engine
	op, err := e.log.Append(m.UserID, m.Timestamp, m.Stroke)
	if err != nil {
		d.res.Err = err
		e.logger.Warn().Err(err).Str("user_id", m.UserID).Msg("draw rejected")
		d.res.direct(d.connID, protocol.Error{Message: "Invalid drawing: " + err.Error()})
		return
	}

	d.res.broadcast(protocol.Drawn{Operation: op}, m.UserID)
	if m.ClientOpID != "" {
		d.res.direct(d.connID, protocol.Ack{OperationID: op.ID, ClientOpID: m.ClientOpID})
	}
	e.logger.Debug().
		Str("operation_id", op.ID).
		Str("user_id", m.UserID).
		Int("points", len(op.Data.Points)).
		Msg("operation appended")
}

func (d *dispatch) HandleCursor(m protocol.CursorMove) {
	d.res.broadcast(protocol.CursorMoved{UserID: m.UserID, Position: m.Position}, m.UserID)
}

func (d *dispatch) HandleUndo(m protocol.Undo) {
	id, ok := d.engine.log.Undo()
	if !ok {
		return
	}
	d.res.broadcast(protocol.Undone{OperationID: id}, "")
	d.engine.logger.Debug().Str("operation_id", id).Str("user_id", m.UserID).Msg("undone")
}

func (d *dispatch) HandleRedo(m protocol.Redo) {
	id, ok := d.engine.log.Redo()
	if !ok {
		return
	}
	d.res.broadcast(protocol.Redone{OperationID: id}, "")
	d.engine.logger.Debug().Str("operation_id", id).Str("user_id", m.UserID).Msg("redone")
}

func (d *dispatch) HandleClear(m protocol.Clear) {
	n := d.engine.log.ClearAll()
	d.res.broadcast(protocol.Cleared{}, "")
	d.engine.logger.Info().Int("cleared", n).Str("user_id", m.UserID).Msg("canvas cleared")
}
