package log

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// PrintfWriter adapts Logger to libraries that want a Printf sink, such as the
// gorm logger.
type PrintfWriter struct {
	Component string
}

func (w PrintfWriter) Printf(format string, args ...any) {
	Logger.Info(strings.TrimSpace(fmt.Sprintf(format, args...)), zap.String("component", w.Component))
}

// TaskLogger adapts Logger to the task queue's Info/Error logger interface.
type TaskLogger struct{}

func (TaskLogger) Info(message string, params ...any) {
	Logger.Info(message, zap.String("component", "tasks"), zap.Any("params", params))
}

func (TaskLogger) Error(message string, params ...any) {
	Logger.Error(message, zap.String("component", "tasks"), zap.Any("params", params))
}
