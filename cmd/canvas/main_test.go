package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/orchestra-mcp/canvas/providers"
	"github.com/orchestra-mcp/canvas/src/bridge"
	"github.com/orchestra-mcp/canvas/src/protocol"
	"github.com/orchestra-mcp/canvas/src/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", false)
	require.NoError(t, err)

	logger.Info().Msg("hidden")
	logger.Warn().Str("conn_id", "c1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"conn_id":"c1"`)
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud", false)
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

// roundTrip passes a frame through JSON as the feed does.
func roundTrip(t *testing.T, f protocol.Frame) bridge.Event {
	t.Helper()
	data, err := json.Marshal(bridge.Event{InstanceID: "0123456789abcdef", Frame: f})
	require.NoError(t, err)
	var ev bridge.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestFormatEvent(t *testing.T) {
	drawn := protocol.Drawn{Operation: types.Operation{
		ID:     "op1",
		UserID: "user_a",
		Data:   types.Stroke{Points: []types.Point{{X: 1, Y: 2}}, Tool: types.ToolBrush},
	}}
	assert.Equal(t, "01234567 draw   op=op1 by=user_a", formatEvent(roundTrip(t, drawn.Frame())))

	undone := protocol.Undone{OperationID: "op1"}
	assert.Equal(t, "01234567 undo   op=op1", formatEvent(roundTrip(t, undone.Frame())))

	users := protocol.Users{Users: []types.UserInfo{{UserID: "user_a", Color: "#FF6B6B"}}}
	assert.Equal(t, "01234567 users  users=1", formatEvent(roundTrip(t, users.Frame())))
}

func TestPrintEventJSON(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, roundTrip(t, protocol.Cleared{}.Frame()), true)
	assert.JSONEq(t, `{"instance_id":"0123456789abcdef","frame":{"type":"clear"}}`, strings.TrimSpace(buf.String()))
}

func TestVersionShort(t *testing.T) {
	cmd := versionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, providers.Version+"\n", buf.String())
}
