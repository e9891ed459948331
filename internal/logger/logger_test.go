package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_LogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Config{Level: tt.in}.LogLevel(), tt.in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Config{Level: "info", Format: "json", ServiceName: "sercha-social", Version: "v1", Environment: "test"})

	log.Debug("hidden")
	log.Info("hello", "post_id", "p1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "sercha-social", entry["service"])
	assert.Equal(t, "p1", entry["post_id"])
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestIDFromContext(ctx)
	assert.False(t, ok)

	id := GenerateRequestID()
	ctx = WithRequestID(ctx, id)
	got, ok := RequestIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	FromContext(ctx, base).Info("x")
	assert.Contains(t, buf.String(), "request_id="+id)
}
