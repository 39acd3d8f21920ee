package repository

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
)

// TelemetryRepository defines the interface for sending cycle outcomes to external systems
type TelemetryRepository interface {
	// Name identifies the sink in logs
	Name() string

	// RecordCycle sends one cycle outcome
	RecordCycle(ctx context.Context, record *entity.CycleRecord, timezoneInfo TimezoneInfo) error

	// Close cleans up any resources used by the telemetry repository
	Close() error
}

// TelemetryRepositoryError represents errors from a telemetry sink
type TelemetryRepositoryError struct {
	Sink      string
	Operation string
	Err       error
}

func (e *TelemetryRepositoryError) Error() string {
	msg := "telemetry error in " + e.Sink + " " + e.Operation
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *TelemetryRepositoryError) Unwrap() error {
	return e.Err
}

// NewTelemetryRepositoryError creates a new telemetry repository error
func NewTelemetryRepositoryError(sink, operation string, err error) error {
	return &TelemetryRepositoryError{
		Sink:      sink,
		Operation: operation,
		Err:       err,
	}
}
