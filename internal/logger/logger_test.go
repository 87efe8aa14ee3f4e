package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponent_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Init("debug", "json")
	buf.Reset()

	Component("executor").WithField("task_id", "abc").Info("task started")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "executor", entry["component"])
	assert.Equal(t, "abc", entry["task_id"])
	assert.Equal(t, "task started", entry["msg"])
}

func TestInit_InvalidLevelFallsBack(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	Init("loud", "text")

	Component("test").Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "Invalid log level")
}
