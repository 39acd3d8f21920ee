package domain

import (
	"context"
)

// LogLevel orders log severities; a logger drops messages below its level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Field is one structured key/value attached to a log line
type Field struct {
	Key   string
	Value interface{}
}

// Logger is the structured logger every component receives from the container
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	WithFields(fields ...Field) Logger
}

// LoggerFactory hands out loggers tagged with a component name
// such as "scheduler" or "dialog"
type LoggerFactory interface {
	CreateLogger(component string) Logger
}

func NewField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
