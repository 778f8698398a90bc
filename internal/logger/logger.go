// ABOUTME: Logger construction from configuration
// ABOUTME: Builds a logrus logger with level, format and optional file output
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/xclockdac/xclockdac-go/internal/config"
)

// New builds a logger writing to stderr and, when configured, a log file.
// The returned closer releases the file and is never nil.
func New(c config.Log) (*logrus.Logger, io.Closer, error) {
	log := logrus.New()
	log.SetLevel(ParseLevel(c.Level))
	SetFormat(log, c.Format)

	if c.File == "" {
		return log, io.NopCloser(nil), nil
	}

	f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return log, f, nil
}

// ParseLevel maps a level name to a logrus level, defaulting to info
func ParseLevel(lvl string) logrus.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// SetFormat selects json or text output
func SetFormat(log *logrus.Logger, format string) {
	switch format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}
