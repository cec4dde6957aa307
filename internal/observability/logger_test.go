// internal/observability/logger_test.go
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
	"go.uber.org/zap/zapcore"

	"github.com/vmaturana/corfex-cli/internal/config"
)

// syncBuffer adapts a bytes.Buffer into a zapcore.WriteSyncer.
type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func initIntoBuffer(cfg config.LoggerConfig) *syncBuffer {
	ResetForTest()
	buf := &syncBuffer{}
	Initialize(cfg, buf)
	return buf
}

func TestInitializeConsoleLogger(t *testing.T) {
	buf := initIntoBuffer(config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "corfex-test",
	})

	GetLogger().Info("This is a test message.", zap.String("key", "value"))

	output := buf.String()
	assert.Contains(t, output, "INFO")
	assert.Contains(t, output, "This is a test message.")
	assert.Contains(t, output, "corfex-test.")
}

func TestInitializeJSONLogger(t *testing.T) {
	buf := initIntoBuffer(config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "corfex-test",
	})

	GetLogger().Info("structured entry", zap.String("step", "submit"))

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "submit", entry["step"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLevelFiltering(t *testing.T) {
	buf := initIntoBuffer(config.LoggerConfig{
		Level:       "warn",
		Format:      "console",
		ServiceName: "corfex-test",
	})

	GetLogger().Info("too quiet to pass")
	GetLogger().Warn("loud enough")

	output := buf.String()
	assert.NotContains(t, output, "too quiet to pass")
	assert.Contains(t, output, "loud enough")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	buf := initIntoBuffer(config.LoggerConfig{
		Level:       "chatty",
		Format:      "console",
		ServiceName: "corfex-test",
	})

	GetLogger().Debug("filtered at info")
	GetLogger().Info("kept at info")

	output := buf.String()
	assert.NotContains(t, output, "filtered at info")
	assert.Contains(t, output, "kept at info")
}

func TestFileSinkWritesJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "corfex.log")
	initIntoBuffer(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "corfex-test",
		LogFile:     logFile,
	})

	GetLogger().Info("written to both sinks")
	Sync()

	raw, err := os.ReadFile(logFile)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &entry))
	assert.Equal(t, "written to both sinks", entry["msg"])
}

func TestInitializeOnlyRunsOnce(t *testing.T) {
	buf := initIntoBuffer(config.LoggerConfig{
		Level:       "info",
		Format:      "console",
		ServiceName: "first",
	})

	other := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "second"}, other)

	GetLogger().Info("who owns me")

	assert.Contains(t, buf.String(), "who owns me")
	assert.Empty(t, other.String())
}

func TestGetLoggerBeforeInitializeFallsBack(t *testing.T) {
	ResetForTest()
	logger := GetLogger()
	require.NotNil(t, logger)

	// The fallback must be safe to use immediately.
	assert.NotPanics(t, func() {
		logger.Debug("early failure path")
	})
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)
