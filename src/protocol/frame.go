// Package protocol defines the canvas wire format: one JSON record per
// websocket text frame, tagged by "type".
//
// Both directions are closed sets. Inbound messages (client to server)
// dispatch themselves through InboundHandler and outbound messages through
// OutboundHandler, so a new message kind does not compile until every
// consumer handles it.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the "type" tag of a frame.
type Kind string

const (
	KindRegister Kind = "register"
	KindInit     Kind = "init"
	KindDraw     Kind = "draw"
	KindAck      Kind = "ack"
	KindCursor   Kind = "cursor"
	KindUndo     Kind = "undo"
	KindRedo     Kind = "redo"
	KindClear    Kind = "clear"
	KindUsers    Kind = "users"
	KindError    Kind = "error"
)

var (
	// ErrMalformed reports a frame that is not a decodable record or whose
	// fields do not have the shape its type requires.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnknownType reports a decodable frame with an unrecognized tag.
	ErrUnknownType = errors.New("unknown message type")
)

// Frame is the JSON envelope written to the wire in both directions.
type Frame struct {
	Type        Kind   `json:"type"`
	UserID      string `json:"userId,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	Data        any    `json:"data,omitempty"`
	OperationID string `json:"operationId,omitempty"`
	ClientOpID  string `json:"clientOpId,omitempty"`
	Message     string `json:"message,omitempty"`
}

// envelope is Frame with the data field left raw for a second decoding pass.
type envelope struct {
	Type        Kind            `json:"type"`
	UserID      string          `json:"userId"`
	Timestamp   int64           `json:"timestamp"`
	Data        json.RawMessage `json:"data"`
	OperationID string          `json:"operationId"`
	ClientOpID  string          `json:"clientOpId"`
	Message     string          `json:"message"`
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env, nil
}

func decodeData(env envelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%w: %s requires data", ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformed, env.Type, err)
	}
	return nil
}
