// Package logger provides structured logging on top of log/slog with
// context propagation.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the logging interface used across the application.
type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)

	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)

	With(attrs ...any) Logger
}

var _ Logger = (*appLogger)(nil)

type appLogger struct {
	logger *slog.Logger
}

// Config holds the logger construction options.
type Config struct {
	debug  bool
	format string
	writer io.Writer
	quiet  bool
}

// Option configures the logger.
type Option func(*Config)

// WithDebug lowers the log level to debug.
func WithDebug() Option {
	return func(o *Config) { o.debug = true }
}

// WithFormat sets the output format (text or json).
func WithFormat(format string) Option {
	return func(o *Config) { o.format = format }
}

// WithWriter adds an extra writer that receives every record in
// addition to stderr.
func WithWriter(w io.Writer) Option {
	return func(o *Config) { o.writer = w }
}

// WithQuiet suppresses the stderr output.
func WithQuiet() Option {
	return func(o *Config) { o.quiet = true }
}

var defaultLogger = NewLogger()

// NewLogger builds a Logger from the given options.
func NewLogger(opts ...Option) Logger {
	cfg := &Config{format: "text"}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	newHandler := func(w io.Writer) slog.Handler {
		if cfg.format == "json" {
			return slog.NewJSONHandler(w, handlerOpts)
		}
		return slog.NewTextHandler(w, handlerOpts)
	}

	var handlers []slog.Handler
	if !cfg.quiet {
		handlers = append(handlers, newHandler(os.Stderr))
	}
	if cfg.writer != nil {
		handlers = append(handlers, newHandler(cfg.writer))
	}
	if len(handlers) == 0 {
		handlers = append(handlers, newHandler(io.Discard))
	}

	return &appLogger{logger: slog.New(slogmulti.Fanout(handlers...))}
}

func (l *appLogger) Debug(msg string, tags ...any) { l.logger.Debug(msg, tags...) }
func (l *appLogger) Info(msg string, tags ...any)  { l.logger.Info(msg, tags...) }
func (l *appLogger) Warn(msg string, tags ...any)  { l.logger.Warn(msg, tags...) }
func (l *appLogger) Error(msg string, tags ...any) { l.logger.Error(msg, tags...) }

func (l *appLogger) Debugf(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l *appLogger) Infof(format string, v ...any)  { l.logger.Info(fmt.Sprintf(format, v...)) }
func (l *appLogger) Warnf(format string, v ...any)  { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l *appLogger) Errorf(format string, v ...any) { l.logger.Error(fmt.Sprintf(format, v...)) }

func (l *appLogger) With(attrs ...any) Logger {
	return &appLogger{logger: l.logger.With(attrs...)}
}
