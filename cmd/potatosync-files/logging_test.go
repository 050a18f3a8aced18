package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broodroosterdev/potatosync-files/config"
)

func TestNewLogHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, config.LogConfig{
		Level:   "info",
		Format:  config.LogFormatJSON,
		TimeKey: "ts",
	}))

	logger.Debug("hidden")
	logger.Info("upload", "subject", "alice@example.com")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Contains(t, line, "ts")
	assert.NotContains(t, line, slog.TimeKey)
	assert.Equal(t, "upload", line["msg"])
	assert.Equal(t, "alice@example.com", line["subject"])
}

func TestNewLogHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newLogHandler(&buf, config.LogConfig{
		Level:   "debug",
		Format:  config.LogFormatText,
		TimeKey: "ts",
	}))

	logger.Debug("key set refreshed")

	assert.Contains(t, buf.String(), "key set refreshed")
	assert.NotContains(t, buf.String(), "{")
}

func TestNewLogHandler_Level(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			h := newLogHandler(&bytes.Buffer{}, config.LogConfig{Level: tt.level, Format: config.LogFormatJSON, TimeKey: "ts"})
			assert.True(t, h.Enabled(t.Context(), tt.want))
			assert.False(t, h.Enabled(t.Context(), tt.want-1))
		})
	}
}
