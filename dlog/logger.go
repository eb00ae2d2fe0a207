// Package dlog provides the connector's logging setup, adapted from the
// host system's logging package (eve.evalgo.org/common: logging.go,
// logger.go). It keeps the same intelligent stream-routing writer
// (errors to stderr, everything else to stdout) and the same
// config-driven logrus.Logger construction, generalized from a
// service-wide global logger to a per-Context logger so multiple
// connector instances in one process don't share log configuration.
package dlog

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
)

// OutputSplitter routes formatted log lines to stderr when they look
// like an error-level entry and to stdout otherwise, so containerized
// deployments can treat the two streams differently.
type OutputSplitter struct{}

// Write implements io.Writer.
func (OutputSplitter) Write(p []byte) (int, error) {
	if bytes.Contains(p, []byte("level=error")) || bytes.Contains(p, []byte("level=fatal")) {
		return os.Stderr.Write(p)
	}
	return os.Stdout.Write(p)
}

// Level mirrors the standard log severities.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Config configures a connector logger instance.
type Config struct {
	Level     Level
	Format    string // "json" or "text"
	Service   string // attached to every entry as a "service" field
	AddCaller bool
}

// DefaultConfig returns sensible defaults: info level, text format.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: "text"}
}

// New builds a *logrus.Logger per config, with output routed through
// OutputSplitter, and returns it as the logrus.FieldLogger that
// docstore.Context.Logger expects. When cfg.Service is set the result is
// an entry of that logger carrying the "service" field.
func New(cfg Config) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(OutputSplitter{})

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	case LevelFatal:
		logger.SetLevel(logrus.FatalLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.SetReportCaller(cfg.AddCaller)

	if cfg.Service != "" {
		return logger.WithField("service", cfg.Service)
	}
	return logger
}
