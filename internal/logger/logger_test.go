package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSONWithFields(t *testing.T) {
	Init("debug")
	var buf bytes.Buffer
	Log.SetOutput(&buf)

	WithContract("C1").Info("funds deposited")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "escrow", line["ledger"])
	assert.Equal(t, "C1", line["contract_id"])
	assert.Equal(t, "funds deposited", line["msg"])
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	Init("loud")
	assert.Equal(t, "info", Log.GetLevel().String())
}

func TestWithAuthorization(t *testing.T) {
	Init("info")
	entry := WithAuthorization("alice", "C2")
	assert.Equal(t, "alice", entry.Data["client"])
	assert.Equal(t, "C2", entry.Data["contract_id"])
}
