// Package logging adapts the l structured logger to the small interface the
// rest of neardup logs through.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/baditaflorin/l"
)

// Logger is a leveled key/value logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	Close() error
}

// Level is a minimum severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel parses "debug", "info", "warn" or "error".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Config configures New.
type Config struct {
	Level Level
	// Path is a log file; empty means stderr.
	Path string
	JSON bool
}

// StdLogger forwards to an l.Logger, dropping entries below the configured level.
type StdLogger struct {
	logger l.Logger
	level  Level
	file   *os.File
}

// New creates a logger writing to cfg.Path or stderr.
func New(cfg Config) (*StdLogger, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		file = f
	}

	logger, err := l.NewStandardFactory().CreateLogger(l.Config{
		Output:      out,
		JsonFormat:  cfg.JSON,
		AsyncWrite:  true,
		BufferSize:  64 * 1024,
		MaxFileSize: 10 * 1024 * 1024,
		MaxBackups:  3,
		AddSource:   false,
		Metrics:     false,
	})
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return &StdLogger{logger: logger, level: cfg.Level, file: file}, nil
}

func (s *StdLogger) Debug(msg string, keysAndValues ...any) {
	if s.level <= LevelDebug {
		s.logger.Debug(msg, keysAndValues...)
	}
}

func (s *StdLogger) Info(msg string, keysAndValues ...any) {
	if s.level <= LevelInfo {
		s.logger.Info(msg, keysAndValues...)
	}
}

func (s *StdLogger) Warn(msg string, keysAndValues ...any) {
	if s.level <= LevelWarn {
		s.logger.Warn(msg, keysAndValues...)
	}
}

func (s *StdLogger) Error(msg string, keysAndValues ...any) {
	s.logger.Error(msg, keysAndValues...)
}

// Close flushes pending writes and closes the log file, if any.
func (s *StdLogger) Close() error {
	err := s.logger.Close()
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type nop struct{}

// Nop returns a Logger that discards everything.
func Nop() Logger { return nop{} }

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}
func (nop) Close() error         { return nil }
