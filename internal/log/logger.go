// SPDX-License-Identifier: MIT
//
// Package log is the process-wide leveled logger. The level is held in an
// atomic so hot paths can check it without locking; output goes through a
// logrus text logger on stderr.
package log

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	case LevelFatal:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	logger       = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
	})
	return l
}

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
	logger.SetLevel(level.logrus())
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects log output, mainly for tests and the TUI which owns the
// terminal while it runs.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

// WithField returns an entry carrying one structured field. The entry obeys
// the global level.
func WithField(key string, value any) *logrus.Entry {
	return logger.WithField(key, value)
}

func Debugf(format string, v ...any) {
	if shouldLog(LevelDebug) {
		logger.Debugf(format, v...)
	}
}

func Infof(format string, v ...any) {
	if shouldLog(LevelInfo) {
		logger.Infof(format, v...)
	}
}

func Warnf(format string, v ...any) {
	if shouldLog(LevelWarn) {
		logger.Warnf(format, v...)
	}
}

func Errorf(format string, v ...any) {
	if shouldLog(LevelError) {
		logger.Errorf(format, v...)
	}
}

// Fatalf always logs and then exits the process.
func Fatalf(format string, v ...any) {
	logger.Fatalf(format, v...)
}

func Debug(v ...any) {
	if shouldLog(LevelDebug) {
		logger.Debug(v...)
	}
}

func Info(v ...any) {
	if shouldLog(LevelInfo) {
		logger.Info(v...)
	}
}

func Warn(v ...any) {
	if shouldLog(LevelWarn) {
		logger.Warn(v...)
	}
}

func Error(v ...any) {
	if shouldLog(LevelError) {
		logger.Error(v...)
	}
}

func Fatal(v ...any) {
	logger.Fatal(v...)
}
