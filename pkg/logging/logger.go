// Package logging provides structured debug logging for surf components.
// All logs for one process share a session-scoped rotating log file under
// ~/.surf/logs/.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes structured log lines for a single component.
//
// All log methods (Debugf, Infof, Warnf, Errorf) write unconditionally;
// there is no level filtering.
type Logger struct {
	sessionID string
	component string
	out       io.Writer
	logger    *log.Logger
	mu        sync.Mutex
}

var (
	// Session ID shared by every logger in this process.
	sessionID     string
	sessionIDOnce sync.Once

	logDir   string
	initOnce sync.Once
	initErr  error

	// Shared rotating writer so every component appends to the same file.
	fileWriter     *lumberjack.Logger
	fileWriterOnce sync.Once
)

func getSessionID() string {
	sessionIDOnce.Do(func() {
		sessionID = uuid.New().String()
	})
	return sessionID
}

func initLogDirectory() error {
	initOnce.Do(func() {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			initErr = fmt.Errorf("failed to get home directory: %w", err)
			return
		}

		logDir = filepath.Join(homeDir, ".surf", "logs")
		if err := os.MkdirAll(logDir, 0750); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		}
	})
	return initErr
}

func sharedFileWriter() *lumberjack.Logger {
	fileWriterOnce.Do(func() {
		fileWriter = &lumberjack.Logger{
			Filename:   filepath.Join(logDir, fmt.Sprintf("%s-surf.log", getSessionID())),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
	})
	return fileWriter
}

// NewLogger creates a logger for a specific component. Output goes to the
// session log file with rotation; if the log directory cannot be created it
// returns a stderr fallback logger along with the error so callers can detect
// degraded mode.
func NewLogger(component string) (*Logger, error) {
	if err := initLogDirectory(); err != nil {
		return newFallbackLogger(component, err), err
	}

	w := sharedFileWriter()
	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       w,
		logger:    log.New(w, "", 0), // timestamps are formatted by formatEntry
	}, nil
}

func newFallbackLogger(component string, err error) *Logger {
	logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", component), log.LstdFlags)
	logger.Printf("WARNING: failed to initialize file logging: %v", err)

	return &Logger{
		sessionID: getSessionID(),
		component: component,
		out:       os.Stderr,
		logger:    logger,
	}
}

func (l *Logger) formatEntry(level, message string) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	return fmt.Sprintf("[%s] [%s] [%s] %s", timestamp, l.component, level, message)
}

func (l *Logger) logf(level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Println(l.formatEntry(level, fmt.Sprintf(format, v...)))
}

// Debugf logs a debug-level message.
func (l *Logger) Debugf(format string, v ...interface{}) { l.logf("DEBUG", format, v...) }

// Infof logs an info-level message.
func (l *Logger) Infof(format string, v ...interface{}) { l.logf("INFO", format, v...) }

// Warnf logs a warning-level message.
func (l *Logger) Warnf(format string, v ...interface{}) { l.logf("WARN", format, v...) }

// Errorf logs an error-level message.
func (l *Logger) Errorf(format string, v ...interface{}) { l.logf("ERROR", format, v...) }

// Writer returns the underlying log destination.
func (l *Logger) Writer() io.Writer { return l.out }

// SessionID returns the process-wide logging session ID.
func (l *Logger) SessionID() string { return l.sessionID }

// GetLogDirectory returns the directory where logs are stored.
func GetLogDirectory() (string, error) {
	if err := initLogDirectory(); err != nil {
		return "", err
	}
	return logDir, nil
}
