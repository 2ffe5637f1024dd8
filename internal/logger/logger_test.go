package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	require.NoError(t, Init(logPath))
	return logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestStructuredLogging(t *testing.T) {
	logPath := setupTestLogger(t)

	Get().Info("edit applied", "file", "main.go", "replacements", 3)

	content := readLog(t, logPath)
	assert.Contains(t, content, "edit applied")
	assert.Contains(t, content, "file=main.go")
	assert.Contains(t, content, "replacements=3")
}

func TestWithSessionAndComponent(t *testing.T) {
	logPath := setupTestLogger(t)

	WithSession("abc123").Info("started")
	WithComponent("git").Info("committed")

	content := readLog(t, logPath)
	assert.Contains(t, content, "sessionID=abc123")
	assert.Contains(t, content, "component=git")
}

func TestSetDebug(t *testing.T) {
	logPath := setupTestLogger(t)

	Get().Debug("hidden")
	SetDebug(true)
	Get().Debug("visible")

	content := readLog(t, logPath)
	assert.NotContains(t, content, "hidden")
	assert.Contains(t, content, "visible")
}

func TestUninitializedLoggerDiscards(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	assert.NotPanics(t, func() {
		Get().Info("nowhere")
		WithSession("x").Warn("nowhere")
	})
}
