package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "delivery_agent_20240304.log")

	logger, closeFn, err := NewLogger(LoggerOptions{Path: path, Level: "info"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("ticket delivered", zap.String("ticket", "CAM-1"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "ticket delivered", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "CAM-1", entry["ticket"])
	assert.Contains(t, entry, "ts")
}

func TestNewLogger_AppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	for _, msg := range []string{"first", "second"} {
		logger, closeFn, err := NewLogger(LoggerOptions{Path: path})
		require.NoError(t, err)
		logger.Info(msg)
		require.NoError(t, closeFn())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNewLogger_ConsoleTee(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "run.log")

	logger, closeFn, err := NewLogger(LoggerOptions{Path: path, Level: "debug", Console: &console})
	require.NoError(t, err)

	logger.Debug("listing settled", zap.String("cwd", "/incoming"))
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "DEBUG")
	assert.Contains(t, console.String(), "listing settled")
	assert.Contains(t, console.String(), `"cwd": "/incoming"`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"listing settled"`)
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var console bytes.Buffer

	logger, closeFn, err := NewLogger(LoggerOptions{Level: "chatty", Console: &console})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	logger.Debug("dropped")
	logger.Info("kept")

	assert.NotContains(t, console.String(), "dropped")
	assert.Contains(t, console.String(), "kept")
}

func TestNewLogger_NoSinks(t *testing.T) {
	logger, closeFn, err := NewLogger(LoggerOptions{})
	require.NoError(t, err)
	logger.Info("nowhere")
	assert.NoError(t, closeFn())
}
