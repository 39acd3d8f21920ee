package impl

import (
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ca-srg/relaunch/domain"
)

func newTestRestartManager(t *testing.T) (*RestartManagerImpl, *[]*exec.Cmd) {
	t.Helper()
	manager, err := NewRestartManager("1.0.0")
	if err != nil {
		t.Fatalf("Failed to create restart manager: %v", err)
	}
	var started []*exec.Cmd
	manager.start = func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		return nil
	}
	manager.exit = func(int) {}
	return manager, &started
}

func TestRestartManagerImpl_Restart(t *testing.T) {
	manager, started := newTestRestartManager(t)

	done := make(chan struct{})
	manager.SetShutdownHandler(func() { close(done) })

	if err := manager.Restart("2.0.0"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown handler was not invoked")
	}

	if !manager.IsRestartPending() {
		t.Error("Restart should be pending")
	}
	if len(*started) != 1 {
		t.Fatalf("Expected one started process, got %d", len(*started))
	}

	// 新プロセスにバージョン情報が渡されていることを確認
	env := strings.Join((*started)[0].Env, "\n")
	if !strings.Contains(env, EnvRestartedFrom+"=1.0.0") {
		t.Errorf("missing %s in child env", EnvRestartedFrom)
	}
	if !strings.Contains(env, EnvTargetVersion+"=2.0.0") {
		t.Errorf("missing %s in child env", EnvTargetVersion)
	}
	if manager.GetRestartReason() != "update to 2.0.0" {
		t.Errorf("unexpected reason %q", manager.GetRestartReason())
	}
}

func TestRestartManagerImpl_OnlyOnce(t *testing.T) {
	manager, started := newTestRestartManager(t)

	if err := manager.Restart("2.0.0"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	err := manager.Restart("2.0.1")
	if !domain.IsErrorCode(err, domain.ErrCodeRestart) {
		t.Fatalf("Expected restart error for second call, got %v", err)
	}
	if len(*started) != 1 {
		t.Errorf("Expected one started process, got %d", len(*started))
	}
}

func TestRestartManagerImpl_StartFailure(t *testing.T) {
	manager, _ := newTestRestartManager(t)
	manager.start = func(*exec.Cmd) error { return errors.New("exec format error") }

	err := manager.Restart("2.0.0")
	if !domain.IsErrorCode(err, domain.ErrCodeRestart) {
		t.Fatalf("Expected restart error, got %v", err)
	}
	// 起動に失敗した場合は再試行できる
	if manager.IsRestartPending() {
		t.Error("Restart should not be pending after start failure")
	}
}

func TestRestartManagerImpl_ExitWithoutHandler(t *testing.T) {
	manager, _ := newTestRestartManager(t)

	var mu sync.Mutex
	exited := -1
	done := make(chan struct{})
	manager.exit = func(code int) {
		mu.Lock()
		exited = code
		mu.Unlock()
		close(done)
	}

	if err := manager.Restart("2.0.0"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("exit was not invoked")
	}
	mu.Lock()
	defer mu.Unlock()
	if exited != 0 {
		t.Errorf("Expected exit code 0, got %d", exited)
	}
}

func TestRestartManagerForTesting(t *testing.T) {
	manager := NewRestartManagerForTesting()
	manager.SetRestartReason("configuration changed")

	if err := manager.Restart("2.0.0"); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err := manager.Restart("3.0.0"); err == nil {
		t.Error("Expected error for second restart")
	}
	if got := manager.RestartedVersions(); len(got) != 1 || got[0] != "2.0.0" {
		t.Errorf("unexpected versions %v", got)
	}
	if manager.GetRestartReason() != "configuration changed" {
		t.Errorf("unexpected reason %q", manager.GetRestartReason())
	}
}

func TestRunningVersion(t *testing.T) {
	t.Setenv(EnvTargetVersion, "")
	if got := RunningVersion("1.0.0"); got != "1.0.0" {
		t.Errorf("RunningVersion() = %q, want compiled version", got)
	}

	t.Setenv(EnvTargetVersion, "1.1.0")
	if got := RunningVersion("1.0.0"); got != "1.1.0" {
		t.Errorf("RunningVersion() = %q, want inherited version", got)
	}
}
