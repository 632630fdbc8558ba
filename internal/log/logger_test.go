package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrlokans/booklook/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestNewLogger_WritesRotatedFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "booklook.log")

	logger := NewLogger(config.Log{Level: "info", File: logFile, MaxSizeMB: 1})
	logger.Info("hello", zap.String("book", "Fantasy Realm"))
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"book":"Fantasy Realm"`)
}

func TestDefaultLoggerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("no init needed")
		TaskLogger{}.Error("task failed", "id", 1)
		PrintfWriter{Component: "gorm"}.Printf("slow query %d", 10)
	})
}
