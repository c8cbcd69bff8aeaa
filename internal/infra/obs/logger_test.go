package obs

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesJSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "prod").Info("escrow released", "booking_id", "bk-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "escrow released", line["msg"])
	require.Equal(t, "bk-1", line["booking_id"])
}

func TestNewLoggerUsesTextInDev(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "dev").Debug("quote computed")
	require.Contains(t, buf.String(), "quote computed")
	require.Error(t, json.Unmarshal(buf.Bytes(), &map[string]any{}))
}
