package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{input: "", expected: zapcore.InfoLevel},
		{input: "debug", expected: zapcore.DebugLevel},
		{input: "WARN", expected: zapcore.WarnLevel},
		{input: "error", expected: zapcore.ErrorLevel},
		{input: "chatty", expected: zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input).Level())
		})
	}
}

func TestNewLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewLogger(path, "info")
	require.NoError(t, err)

	log.Debugw("hidden", "k", 1)
	log.Infow("artifact written", "path", "extrato_fi.csv")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "artifact written", entry["msg"])
	assert.Equal(t, "extrato_fi.csv", entry["path"])
	assert.Contains(t, entry, "timestamp")
}

func TestNewLoggerWithoutPath(t *testing.T) {
	log, err := NewLogger("", "debug")
	require.NoError(t, err)
	log.Infow("dropped")
}
