package helpers

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sjsage522/salecrawler/logger"
)

// LoggerInterface defines the interface for failure log implementations
type LoggerInterface interface {
	LogError(source string, err error)
	LogInfo(format string, args ...interface{})
}

// Logger appends run failures to a file and forwards info messages to the app logger
type Logger struct {
	mu        sync.Mutex
	errorFile string
}

// NewLogger creates a new logger instance. An empty errorFile disables the file.
func NewLogger(errorFile string) *Logger {
	return &Logger{
		errorFile: errorFile,
	}
}

// LogError logs an error to the file with its source and timestamp
func (l *Logger) LogError(source string, err error) {
	logger.For(source).WithError(err).Debug().Msg("Recording run failure")

	if l.errorFile == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, fileErr := os.OpenFile(l.errorFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if fileErr != nil {
		logger.Warn("failed to open error log %s: %v", l.errorFile, fileErr)
		return
	}
	defer f.Close()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(f, "[%s] [%s] %s\n", timestamp, source, err.Error())
}

// LogInfo logs an informational message
func (l *Logger) LogInfo(format string, args ...interface{}) {
	logger.Info(format, args...)
}
