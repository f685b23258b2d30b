package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFormatUsesJSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "auto"})
	require.NoError(t, err)

	logger.Info("pushed", "code", 200)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pushed", entry["msg"])
	assert.Equal(t, float64(200), entry["code"])
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Format: "text"})
	require.NoError(t, err)

	logger.Warn("partial override", "field", "title")
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "field=title")
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelError))
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, Options{Format: "xml"})
	assert.ErrorContains(t, err, "unsupported")
}
