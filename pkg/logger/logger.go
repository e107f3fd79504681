// Package logger provides structured logging for the storefront services.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"STOREFRONT_LOG_LEVEL"`
	Format     string `yaml:"format" env:"STOREFRONT_LOG_FORMAT"`
	Output     string `yaml:"output" env:"STOREFRONT_LOG_OUTPUT"`
	FilePrefix string `yaml:"file_prefix" env:"STOREFRONT_LOG_FILE_PREFIX"`
}

// Logger wraps a logrus entry carrying the originating service field.
type Logger struct {
	*logrus.Entry
}

// New creates a logger from configuration. Unknown values fall back to
// sensible defaults rather than failing startup.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		base.SetOutput(os.Stdout)
	case "stderr":
		base.SetOutput(os.Stderr)
	default:
		if file, err := openLogFile(cfg.Output, cfg.FilePrefix); err == nil {
			base.SetOutput(file)
		} else {
			base.SetOutput(os.Stdout)
			base.WithError(err).Warn("falling back to stdout logging")
		}
	}

	return &Logger{Entry: logrus.NewEntry(base)}
}

// NewDefault creates a text logger at info level tagged with a service name.
func NewDefault(service string) *Logger {
	log := New(LoggingConfig{Level: "info", Format: "text", Output: "stdout"})
	return &Logger{Entry: log.Entry.WithField("service", service)}
}

// Named returns a child logger with the service field replaced.
func (l *Logger) Named(service string) *Logger {
	return &Logger{Entry: l.Entry.WithField("service", service)}
}

// SetOutput redirects all output of the underlying logger. Used by tests and
// example functions to silence log noise.
func (l *Logger) SetOutput(w io.Writer) {
	l.Entry.Logger.SetOutput(w)
}

func openLogFile(dir, prefix string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "storefront"
	}
	name := prefix + "-" + time.Now().UTC().Format("20060102") + ".log"
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
}
