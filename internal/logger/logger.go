package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// Debug flag to control debug logging
	debugEnabled = false
	// The logger instance. Writes to stderr so stdout carries only command output.
	log = newLogger(os.Stderr)
)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	l.SetLevel(logrus.WarnLevel)
	return l
}

// Init initializes the logger
func Init(debug bool) {
	debugEnabled = debug
	if debug {
		log.SetLevel(logrus.DebugLevel)
		Debug("Debug logging enabled")
	}
}

// SetLevel sets the log level by name (debug, info, warn, error).
// Unknown names leave the level unchanged.
func SetLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		debugEnabled = true
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	}
}

// SetOutput redirects log output.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Debug logs a debug message if debug mode is enabled
func Debug(format string, v ...interface{}) {
	log.Debug(fmt.Sprintf(format, v...))
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	log.Info(fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	log.Warn(fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	log.Error(fmt.Sprintf(format, v...))
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// Component loggers tag every entry with the subsystem that produced it.

const (
	componentResolver = "resolver"
	componentTelegram = "telegram"
)

func ResolverDebug(format string, v ...interface{}) {
	log.WithField("component", componentResolver).Debug(fmt.Sprintf(format, v...))
}

func ResolverWarn(format string, v ...interface{}) {
	log.WithField("component", componentResolver).Warn(fmt.Sprintf(format, v...))
}

func TelegramDebug(format string, v ...interface{}) {
	log.WithField("component", componentTelegram).Debug(fmt.Sprintf(format, v...))
}

func TelegramInfo(format string, v ...interface{}) {
	log.WithField("component", componentTelegram).Info(fmt.Sprintf(format, v...))
}

func TelegramWarn(format string, v ...interface{}) {
	log.WithField("component", componentTelegram).Warn(fmt.Sprintf(format, v...))
}

func TelegramError(format string, v ...interface{}) {
	log.WithField("component", componentTelegram).Error(fmt.Sprintf(format, v...))
}
