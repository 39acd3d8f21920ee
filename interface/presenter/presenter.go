package presenter

import (
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// StatusReport is everything `relaunch --status` shows
type StatusReport struct {
	Version    string
	ConfigPath string
	Probe      string
	Timezone   string

	// Daemon is read from the PID file. DaemonPID is zero when no daemon runs.
	DaemonRunning bool
	DaemonPID     int

	WindowStartHour int
	WindowEndHour   int
	WaitInterval    time.Duration

	// Scheduler is only set when the report is built inside the running process
	Scheduler *usecase.StatusInfo

	Recent       []*entity.CycleRecord
	Summary      map[entity.CycleResult]int
	SummarySince time.Time
}

// NextWindowReport describes the next randomized check time
type NextWindowReport struct {
	Now             time.Time
	Delay           time.Duration
	WakeAt          time.Time
	WindowStartHour int
	WindowEndHour   int
	Timezone        string
}

// ConsolePresenter handles console output formatting
type ConsolePresenter interface {
	PrintVersion(version string)
	PrintError(err error)

	PrintStatus(report *StatusReport) error
	PrintNextWindow(report *NextWindowReport) error
	PrintCycle(record *entity.CycleRecord) error
}

// JSONPresenter handles JSON output formatting
type JSONPresenter interface {
	PrintStatus(report *StatusReport) error
	PrintNextWindow(report *NextWindowReport) error
	PrintCycle(record *entity.CycleRecord) error
}
