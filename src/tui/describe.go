package tui

import (
	"fmt"

	"github.com/orchestra-mcp/canvas/src/protocol"
)

// describe renders a server message as a one-line summary.
func describe(msg protocol.Outbound) string {
	d := &describer{}
	msg.Dispatch(d)
	return d.text
}

type describer struct{ text string }

var _ protocol.OutboundHandler = (*describer)(nil)

func (d *describer) HandleInit(m protocol.Init) {
	d.text = fmt.Sprintf("joined: %d operations, %d users", len(m.Operations), len(m.Users))
}

func (d *describer) HandleDrawn(m protocol.Drawn) {
	d.text = fmt.Sprintf("%s drew %s (%d points)", m.Operation.UserID, m.Operation.Data.Tool, len(m.Operation.Data.Points))
}

func (d *describer) HandleAck(m protocol.Ack) {
	d.text = "stroke committed as " + m.OperationID
}

func (d *describer) HandleCursorMoved(m protocol.CursorMoved) {
	d.text = fmt.Sprintf("%s moved to %.0f,%.0f", m.UserID, m.Position.X, m.Position.Y)
}

func (d *describer) HandleUndone(m protocol.Undone) { d.text = "undo " + m.OperationID }
func (d *describer) HandleRedone(m protocol.Redone) { d.text = "redo " + m.OperationID }
func (d *describer) HandleCleared(protocol.Cleared) { d.text = "canvas cleared" }

func (d *describer) HandleUsers(m protocol.Users) {
	d.text = fmt.Sprintf("%d users online", len(m.Users))
}

func (d *describer) HandleError(m protocol.Error) {
	d.text = "error: " + m.Message
}
