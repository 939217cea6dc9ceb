package logging

import (
	"bytes"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})
	l.Info("hidden")
	l.Warn("shown", FlowKey, "onboarding")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "onboarding", rec[FlowKey])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l := New(&Config{Level: "debug", Format: FormatText, Output: &buf})
	l.Debug("extracting", UIDKey, "oseh_j_1")
	assert.Contains(t, buf.String(), "uid=oseh_j_1")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("CLIENTFLOW_LOG_LEVEL", "DEBUG")
	t.Setenv("CLIENTFLOW_LOG_FORMAT", "Text")
	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, FormatText, cfg.Format)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.NotNil(t, New(nil))
}
