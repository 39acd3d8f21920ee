package usecase

import (
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// SchedulerState is the step the update scheduler is currently in
type SchedulerState string

const (
	SchedulerStateIdle          SchedulerState = "idle"
	SchedulerStateSleeping      SchedulerState = "sleeping"
	SchedulerStateChecking      SchedulerState = "checking"
	SchedulerStateReconfiguring SchedulerState = "reconfiguring"
	SchedulerStateAuthorizing   SchedulerState = "authorizing"
	SchedulerStateConfirming    SchedulerState = "confirming"
	SchedulerStateAuditing      SchedulerState = "auditing"
	SchedulerStateRestarting    SchedulerState = "restarting"
	SchedulerStateStopped       SchedulerState = "stopped"
	SchedulerStateFailed        SchedulerState = "failed"
)

// StatusInfo represents the current status of the application
type StatusInfo struct {
	// IsRunning indicates whether the scheduler loop is currently running
	IsRunning bool

	// State is the current scheduler step
	State SchedulerState

	// CurrentVersion is the version of the running binary
	CurrentVersion string

	// NextCheckAt is when the scheduler wakes up next
	NextCheckAt *time.Time

	// LastCycleAt is when the last cycle finished
	LastCycleAt *time.Time

	// LastResult is how the last cycle ended
	LastResult entity.CycleResult

	// LastOutcome is the last confirmation outcome, if a prompt was shown
	LastOutcome entity.DialogOutcome

	// LastOfferedVersion is the version offered by the last cycle
	LastOfferedVersion string

	// LastError is the last error that occurred (if any)
	LastError error

	// LastErrorAt is the timestamp of the last error
	LastErrorAt *time.Time

	// FatalError is set when the scheduler loop stopped on an unrecoverable error
	FatalError error

	// DaemonStartedAt is the timestamp when the daemon was started
	DaemonStartedAt *time.Time
}

// StatusService is the supervising status object of the scheduler task
type StatusService interface {
	// GetStatus returns a copy of the current status information
	GetStatus() (*StatusInfo, error)

	// SetState records the current scheduler step
	SetState(state SchedulerState) error

	// UpdateNextCheck records when the next cycle starts
	UpdateNextCheck(nextAt time.Time) error

	// RecordCycle records the result of a finished cycle
	RecordCycle(record *entity.CycleRecord) error

	// RecordError records a recoverable error
	RecordError(err error) error

	// RecordFatal records the error that terminated the scheduler loop
	RecordFatal(err error) error

	// ClearError clears the last error
	ClearError() error

	// SetDaemonStarted sets the daemon started timestamp and running version
	SetDaemonStarted(startedAt time.Time, version string) error

	// SetDaemonStopped clears the daemon runtime information
	SetDaemonStopped() error
}
