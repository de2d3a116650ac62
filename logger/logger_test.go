package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel(" warn "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestBuildWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := build(Config{Level: InfoLevel}, zapcore.AddSync(&buf))

	l.Debug("hidden")
	l.Info("song created", String("songId", "abc"), Int("duration", 180))
	require.NoError(t, l.Sync())

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "song created", entry["msg"])
	assert.Equal(t, "abc", entry["songId"])
	assert.EqualValues(t, 180, entry["duration"])
	assert.Contains(t, entry, "timestamp")
}

func TestBuildWithRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var buf bytes.Buffer
	l := build(Config{Level: DebugLevel, OutputPath: path, MaxSize: 1}, zapcore.AddSync(&buf))

	l.Warn("rate limit store unavailable")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rate limit store unavailable")
}

func TestHelpersBeforeInitDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("not initialised", Bool("ok", true))
		Warn("still fine")
	})
	assert.NotNil(t, L())
}
