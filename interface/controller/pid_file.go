package controller

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// pidFile records the running process so `relaunch --status` can find it
type pidFile struct {
	path string
}

// write stores the current PID. An empty path disables the file.
func (p *pidFile) write() error {
	if p.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create PID file directory: %w", err)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	return nil
}

// remove deletes the file if it still names this process. A restarted
// process may already have replaced it.
func (p *pidFile) remove() error {
	if p.path == "" {
		return nil
	}
	pid, err := readPID(p.path)
	if err == nil && pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// ReadPIDFile returns the PID stored at path and whether that process is alive
func ReadPIDFile(path string) (int, bool) {
	if path == "" {
		return 0, false
	}
	pid, err := readPID(path)
	if err != nil || pid <= 0 {
		return 0, false
	}
	// Signal 0 only checks that the process exists
	if err := syscall.Kill(pid, 0); err != nil && err != syscall.EPERM {
		return pid, false
	}
	return pid, true
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
