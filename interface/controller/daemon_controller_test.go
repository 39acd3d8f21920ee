//go:build darwin
// +build darwin

package controller

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/infrastructure/config"
	"github.com/ca-srg/relaunch/usecase/impl"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// mockTray records what the daemon shows in the menu bar
type mockTray struct {
	checkNowChan chan struct{}
	settingsChan chan struct{}
	quitChan     chan struct{}

	mu            sync.Mutex
	notifications []string
	statuses      []*usecase.StatusInfo
}

func newMockTray() *mockTray {
	return &mockTray{
		checkNowChan: make(chan struct{}, 1),
		settingsChan: make(chan struct{}, 1),
		quitChan:     make(chan struct{}, 1),
	}
}

func (m *mockTray) OnReady()                         {}
func (m *mockTray) OnExit()                          {}
func (m *mockTray) CheckNowChannel() <-chan struct{} { return m.checkNowChan }
func (m *mockTray) SettingsChannel() <-chan struct{} { return m.settingsChan }
func (m *mockTray) QuitChannel() <-chan struct{}     { return m.quitChan }

func (m *mockTray) UpdateStatus(status *usecase.StatusInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *mockTray) Notify(title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, title+": "+message)
	return nil
}

func (m *mockTray) Notifications() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.notifications...)
}

type daemonFixture struct {
	daemon    *DaemonController
	tray      *mockTray
	scheduler *blockingScheduler
	status    *impl.StatusServiceImpl
	restarter *impl.RestartManagerForTesting
	quits     chan struct{}
	opened    []string
}

func newDaemonFixture(t *testing.T) *daemonFixture {
	cfg := config.DefaultConfig()
	cfg.Daemon.PidFile = filepath.Join(t.TempDir(), "relaunch.pid")

	f := &daemonFixture{
		tray:      newMockTray(),
		scheduler: newBlockingScheduler(),
		status:    impl.NewStatusService(),
		restarter: impl.NewRestartManagerForTesting(),
		quits:     make(chan struct{}, 4),
	}
	f.daemon = NewDaemonController(cfg, &reloadCountingConfigService{}, f.scheduler, f.status, f.restarter, NewUIThread(), nil, &mockLogger{}, "1.0.0")
	f.daemon.tray = f.tray
	f.daemon.quitTray = func() { f.quits <- struct{}{} }
	f.daemon.openEditor = func(path string) error {
		f.opened = append(f.opened, path)
		return nil
	}
	return f
}

func (f *daemonFixture) waitQuit(t *testing.T) {
	t.Helper()
	select {
	case <-f.quits:
	case <-time.After(5 * time.Second):
		t.Fatal("menu bar was not asked to quit")
	}
}

func TestDaemonController_StartStop(t *testing.T) {
	f := newDaemonFixture(t)

	require.NoError(t, f.daemon.Start())
	<-f.scheduler.started

	status, err := f.status.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.IsRunning)
	_, alive := ReadPIDFile(f.daemon.pid.path)
	assert.True(t, alive)

	f.tray.quitChan <- struct{}{}
	f.waitQuit(t)
	f.daemon.Stop()
	f.daemon.Stop()

	status, _ = f.status.GetStatus()
	assert.False(t, status.IsRunning)
	_, alive = ReadPIDFile(f.daemon.pid.path)
	assert.False(t, alive)
}

func TestDaemonController_RestartHandover(t *testing.T) {
	f := newDaemonFixture(t)
	require.NoError(t, f.daemon.Start())
	<-f.scheduler.started

	handler := f.restarter.ShutdownHandler()
	require.NotNil(t, handler)
	handler()

	f.waitQuit(t)
	f.daemon.Stop()
}

func TestDaemonController_CheckNow(t *testing.T) {
	f := newDaemonFixture(t)
	require.NoError(t, f.daemon.Start())
	defer f.daemon.Stop()
	<-f.scheduler.started

	f.tray.checkNowChan <- struct{}{}
	require.Eventually(t, func() bool {
		for _, n := range f.tray.Notifications() {
			if n == "relaunch: You are up to date (1.0.0)." {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
}

func TestDaemonController_CheckNowWhileCycleRunning(t *testing.T) {
	f := newDaemonFixture(t)
	f.scheduler.cycle = entity.CycleResultSkipped
	require.NoError(t, f.daemon.Start())
	defer f.daemon.Stop()
	<-f.scheduler.started

	f.tray.checkNowChan <- struct{}{}
	require.Eventually(t, func() bool {
		for _, n := range f.tray.Notifications() {
			if n == "relaunch: An update check is already running." {
				return true
			}
		}
		return false
	}, 5*time.Second, 5*time.Millisecond)
}

func TestDaemonController_WakeReschedules(t *testing.T) {
	f := newDaemonFixture(t)
	require.NoError(t, f.daemon.Start())
	defer f.daemon.Stop()

	f.daemon.onPowerEvent(PowerEventSleep)
	assert.Equal(t, 0, f.scheduler.Reschedules())
	f.daemon.onPowerEvent(PowerEventWake)
	assert.Equal(t, 1, f.scheduler.Reschedules())
}
