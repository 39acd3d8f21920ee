package impl

import (
	"sync"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// StatusServiceImpl implements StatusService
type StatusServiceImpl struct {
	mu     sync.RWMutex
	status *usecase.StatusInfo
	now    func() time.Time
}

// NewStatusService creates a new instance of StatusService
func NewStatusService() *StatusServiceImpl {
	return &StatusServiceImpl{
		status: &usecase.StatusInfo{
			IsRunning: false,
			State:     usecase.SchedulerStateIdle,
		},
		now: time.Now,
	}
}

// GetStatus returns the current status information
func (s *StatusServiceImpl) GetStatus() (*usecase.StatusInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Create a copy to avoid concurrent modification
	statusCopy := *s.status
	statusCopy.NextCheckAt = copyTime(s.status.NextCheckAt)
	statusCopy.LastCycleAt = copyTime(s.status.LastCycleAt)
	statusCopy.LastErrorAt = copyTime(s.status.LastErrorAt)
	statusCopy.DaemonStartedAt = copyTime(s.status.DaemonStartedAt)

	return &statusCopy, nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SetState records the current scheduler step
func (s *StatusServiceImpl) SetState(state usecase.SchedulerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = state
	if state != usecase.SchedulerStateSleeping {
		s.status.NextCheckAt = nil
	}
	return nil
}

// UpdateNextCheck updates the next wake-up timestamp
func (s *StatusServiceImpl) UpdateNextCheck(nextAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.NextCheckAt = &nextAt
	return nil
}

// RecordCycle records the result of a finished cycle
func (s *StatusServiceImpl) RecordCycle(record *entity.CycleRecord) error {
	if record == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	finished := record.FinishedAt
	s.status.LastCycleAt = &finished
	s.status.LastResult = record.Result
	s.status.LastOutcome = record.Outcome
	if record.Version != "" {
		s.status.LastOfferedVersion = record.Version
	}
	return nil
}

// RecordError records an error that occurred
func (s *StatusServiceImpl) RecordError(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.status.LastError = err
	s.status.LastErrorAt = &now
	return nil
}

// RecordFatal records the error that stopped the scheduler loop
func (s *StatusServiceImpl) RecordFatal(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.status.FatalError = err
	s.status.LastError = err
	s.status.LastErrorAt = &now
	s.status.State = usecase.SchedulerStateFailed
	s.status.NextCheckAt = nil
	return nil
}

// ClearError clears the last error
func (s *StatusServiceImpl) ClearError() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.LastError = nil
	s.status.LastErrorAt = nil
	return nil
}

// SetDaemonStarted sets the daemon started timestamp
func (s *StatusServiceImpl) SetDaemonStarted(startedAt time.Time, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.IsRunning = true
	s.status.DaemonStartedAt = &startedAt
	s.status.CurrentVersion = version
	s.status.FatalError = nil
	return nil
}

// SetDaemonStopped clears the daemon runtime information
func (s *StatusServiceImpl) SetDaemonStopped() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.IsRunning = false
	s.status.DaemonStartedAt = nil
	s.status.NextCheckAt = nil
	if s.status.State != usecase.SchedulerStateFailed {
		s.status.State = usecase.SchedulerStateStopped
	}
	return nil
}

var _ usecase.StatusService = (*StatusServiceImpl)(nil)
