package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLoggerForTest(zerolog.New(&buf))
	defer restore()
	SetLogLevel("debug")
	defer SetLogLevel("info")

	Info("processed file", "filename", "a.pdf", "pages", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "processed file", entry["message"])
	assert.Equal(t, "a.pdf", entry["filename"])
	assert.Equal(t, float64(3), entry["pages"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLoggerForTest(zerolog.New(&buf))
	defer restore()

	SetLogLevel("warn")
	defer SetLogLevel("info")

	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetLogLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLoggerForTest(zerolog.New(&buf))
	defer restore()

	SetLogLevel("nonsense")
	defer SetLogLevel("info")

	Debug("too detailed")
	Info("visible")

	assert.NotContains(t, buf.String(), "too detailed")
	assert.Contains(t, buf.String(), "visible")
}

func TestLogIgnoresDanglingKey(t *testing.T) {
	var buf bytes.Buffer
	restore := SetLoggerForTest(zerolog.New(&buf))
	defer restore()

	Warn("odd args", "key1", "val1", "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "val1", entry["key1"])
	_, ok := entry["dangling"]
	assert.False(t, ok)
}
