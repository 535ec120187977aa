package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the process logger.
//
// Logs always go to stderr because stdout carries the MCP protocol when the
// tracker runs as a server. Level "debug" selects a human-readable text
// formatter; any other level logs JSON. An unrecognized level means info.
func NewLogger(level string) *logrus.Logger {
	return newLogger(os.Stderr, level)
}

// LoggerFromEnv creates the process logger with the level taken from
// KILOBOT_LOG_LEVEL.
func LoggerFromEnv() *logrus.Logger {
	return NewLogger(os.Getenv(EnvLogLevel))
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if lvl >= logrus.DebugLevel {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
