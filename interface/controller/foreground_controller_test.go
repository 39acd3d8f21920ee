package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/usecase/impl"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// mockLogger is a test logger that does nothing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...domain.Field) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...domain.Field)  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...domain.Field)  {}
func (m *mockLogger) Error(ctx context.Context, msg string, fields ...domain.Field) {}
func (m *mockLogger) WithFields(fields ...domain.Field) domain.Logger               { return m }

// blockingScheduler runs until its context ends
type blockingScheduler struct {
	mu          sync.Mutex
	started     chan struct{}
	reschedules int
	err         error
	cycle       entity.CycleResult
}

func newBlockingScheduler() *blockingScheduler {
	return &blockingScheduler{started: make(chan struct{})}
}

func (s *blockingScheduler) Run(ctx context.Context) error {
	close(s.started)
	if s.err != nil {
		return s.err
	}
	<-ctx.Done()
	return nil
}

func (s *blockingScheduler) RunCycle(ctx context.Context) *entity.CycleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycle != "" {
		return &entity.CycleRecord{Result: s.cycle}
	}
	return &entity.CycleRecord{Result: entity.CycleResultNoAction}
}

func (s *blockingScheduler) NextDelay(now time.Time) (time.Duration, error) { return time.Hour, nil }

func (s *blockingScheduler) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reschedules++
}

func (s *blockingScheduler) Reschedules() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reschedules
}

// reloadCountingConfigService only implements ReloadConfig
type reloadCountingConfigService struct {
	usecase.ConfigService
	mu      sync.Mutex
	reloads int
	err     error
}

func (c *reloadCountingConfigService) ReloadConfig() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reloads++
	return c.err
}

type foregroundFixture struct {
	scheduler *blockingScheduler
	status    *impl.StatusServiceImpl
	config    *reloadCountingConfigService
	restarter *impl.RestartManagerForTesting
	ui        *UIThread
	signals   chan chan<- os.Signal
	pidPath   string
	ctrl      *ForegroundController
}

func newForegroundFixture(t *testing.T) *foregroundFixture {
	f := &foregroundFixture{
		scheduler: newBlockingScheduler(),
		status:    impl.NewStatusService(),
		config:    &reloadCountingConfigService{},
		restarter: impl.NewRestartManagerForTesting(),
		ui:        NewUIThread(),
		signals:   make(chan chan<- os.Signal, 1),
		pidPath:   filepath.Join(t.TempDir(), "relaunch.pid"),
	}
	f.ctrl = NewForegroundController(f.scheduler, f.status, f.config, f.restarter, f.ui, &mockLogger{}, "1.0.0", f.pidPath)
	f.ctrl.notifySignals = func(c chan<- os.Signal) { f.signals <- c }
	f.ctrl.stopSignals = func(chan<- os.Signal) {}
	return f
}

func (f *foregroundFixture) start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() { done <- f.ctrl.Run(ctx) }()
	<-f.scheduler.started
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("controller did not stop")
		return nil
	}
}

func TestForegroundController_RunAndCancel(t *testing.T) {
	f := newForegroundFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := f.start(ctx)

	status, _ := f.status.GetStatus()
	assert.True(t, status.IsRunning)
	assert.Equal(t, "1.0.0", status.CurrentVersion)
	assert.True(t, f.ui.Available())
	pid, alive := ReadPIDFile(f.pidPath)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, alive)

	cancel()
	require.NoError(t, waitDone(t, done))

	status, _ = f.status.GetStatus()
	assert.False(t, status.IsRunning)
	assert.False(t, f.ui.Available())
	_, err := os.Stat(f.pidPath)
	assert.True(t, os.IsNotExist(err))
}

func TestForegroundController_Signals(t *testing.T) {
	f := newForegroundFixture(t)
	done := f.start(context.Background())
	signals := <-f.signals

	signals <- syscall.SIGHUP
	require.Eventually(t, func() bool { return f.scheduler.Reschedules() == 1 }, 5*time.Second, 5*time.Millisecond)

	signals <- syscall.SIGTERM
	require.NoError(t, waitDone(t, done))
}

func TestForegroundController_ReloadFailureKeepsSchedule(t *testing.T) {
	f := newForegroundFixture(t)
	f.config.err = errors.New("invalid JSON")
	done := f.start(context.Background())
	signals := <-f.signals

	signals <- syscall.SIGHUP
	require.Eventually(t, func() bool {
		f.config.mu.Lock()
		defer f.config.mu.Unlock()
		return f.config.reloads == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.scheduler.Reschedules())

	signals <- syscall.SIGINT
	require.NoError(t, waitDone(t, done))
}

func TestForegroundController_StopsAfterRestartHandover(t *testing.T) {
	f := newForegroundFixture(t)
	done := f.start(context.Background())

	handler := f.restarter.ShutdownHandler()
	require.NotNil(t, handler)
	handler()

	require.NoError(t, waitDone(t, done))
}

func TestForegroundController_SchedulerFailure(t *testing.T) {
	f := newForegroundFixture(t)
	f.scheduler.err = domain.ErrSchedule("sleep failed", errors.New("boom"))

	err := waitDone(t, f.start(context.Background()))
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSchedule))
}
