package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

type LoggerFactoryImpl struct {
	config   *config.LoggingConfig
	fallback io.Writer

	mu       sync.Mutex
	shippers []*PromtailLogger
}

var _ domain.LoggerFactory = (*LoggerFactoryImpl)(nil)

func NewLoggerFactory(cfg *config.LoggingConfig) *LoggerFactoryImpl {
	return NewLoggerFactoryWithWriter(cfg, os.Stderr)
}

// NewLoggerFactoryWithWriter uses out for components when Loki is not configured
func NewLoggerFactoryWithWriter(cfg *config.LoggingConfig, out io.Writer) *LoggerFactoryImpl {
	if cfg == nil {
		cfg = &config.LoggingConfig{Level: "info"}
	}
	return &LoggerFactoryImpl{
		config:   cfg,
		fallback: out,
	}
}

func (f *LoggerFactoryImpl) CreateLogger(component string) domain.Logger {
	var logger domain.Logger
	promtailLogger, err := NewPromtailLogger(f.config.Promtail, component)
	if err != nil {
		if f.fallback == nil {
			return &NoOpLogger{}
		}
		logger = NewWriterLogger(f.fallback, component)
	} else {
		f.mu.Lock()
		f.shippers = append(f.shippers, promtailLogger)
		f.mu.Unlock()
		logger = promtailLogger
	}

	// Apply log level filtering
	level := f.parseLogLevel(f.config.Level)
	if f.config.Debug {
		level = domain.LogLevelDebug
	}
	logger = NewLevelFilterLogger(logger, level)

	// Mirror shipped entries locally in debug mode
	if f.config.Debug && promtailLogger != nil {
		logger = NewDebugLogger(logger, component)
	}

	return logger
}

// Shutdown flushes every Loki client created by the factory
func (f *LoggerFactoryImpl) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.shippers {
		_ = p.Shutdown()
	}
	f.shippers = nil
}

func (f *LoggerFactoryImpl) parseLogLevel(level string) domain.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return domain.LogLevelDebug
	case "info":
		return domain.LogLevelInfo
	case "warn":
		return domain.LogLevelWarn
	case "error":
		return domain.LogLevelError
	default:
		return domain.LogLevelInfo
	}
}

// LevelFilterLogger filters log messages based on minimum level
type LevelFilterLogger struct {
	wrapped  domain.Logger
	minLevel domain.LogLevel
}

func NewLevelFilterLogger(wrapped domain.Logger, minLevel domain.LogLevel) *LevelFilterLogger {
	return &LevelFilterLogger{
		wrapped:  wrapped,
		minLevel: minLevel,
	}
}

func (l *LevelFilterLogger) Debug(ctx context.Context, msg string, fields ...domain.Field) {
	if domain.LogLevelDebug >= l.minLevel {
		l.wrapped.Debug(ctx, msg, fields...)
	}
}

func (l *LevelFilterLogger) Info(ctx context.Context, msg string, fields ...domain.Field) {
	if domain.LogLevelInfo >= l.minLevel {
		l.wrapped.Info(ctx, msg, fields...)
	}
}

func (l *LevelFilterLogger) Warn(ctx context.Context, msg string, fields ...domain.Field) {
	if domain.LogLevelWarn >= l.minLevel {
		l.wrapped.Warn(ctx, msg, fields...)
	}
}

func (l *LevelFilterLogger) Error(ctx context.Context, msg string, fields ...domain.Field) {
	if domain.LogLevelError >= l.minLevel {
		l.wrapped.Error(ctx, msg, fields...)
	}
}

func (l *LevelFilterLogger) WithFields(fields ...domain.Field) domain.Logger {
	return &LevelFilterLogger{
		wrapped:  l.wrapped.WithFields(fields...),
		minLevel: l.minLevel,
	}
}

// NoOpLogger is a logger that does nothing
type NoOpLogger struct{}

func (n *NoOpLogger) Debug(ctx context.Context, msg string, fields ...domain.Field) {}
func (n *NoOpLogger) Info(ctx context.Context, msg string, fields ...domain.Field)  {}
func (n *NoOpLogger) Warn(ctx context.Context, msg string, fields ...domain.Field)  {}
func (n *NoOpLogger) Error(ctx context.Context, msg string, fields ...domain.Field) {}
func (n *NoOpLogger) WithFields(fields ...domain.Field) domain.Logger {
	return n
}
