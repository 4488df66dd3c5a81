// Package logging builds the application logger from configuration.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/domain"
)

// NewLogger constructs a logrus logger per the logging configuration.
// Unrecognized values fall back to info level, JSON format and stdout.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	switch cfg.Output {
	case "", "stdout":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.SetOutput(os.Stdout)
			logger.WithField("path", cfg.Output).Warn("Could not open log file, falling back to stdout")
		} else {
			logger.SetOutput(file)
		}
	}

	return logger
}
