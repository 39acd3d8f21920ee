package entity

import (
	"fmt"
	"math"
	"time"
)

// RestartRequest is an offer to restart into a version. It is created by
// the scheduler, consumed once by the restart gate and never mutated.
type RestartRequest struct {
	version      string
	waitInterval time.Duration
	isNewVersion bool
}

// NewRestartRequest validates the wait interval and creates a request.
// The interval feeds a timer and must be positive and representable as a
// signed 32-bit millisecond count.
func NewRestartRequest(version string, waitInterval time.Duration, isNewVersion bool) (RestartRequest, error) {
	if waitInterval <= 0 {
		return RestartRequest{}, fmt.Errorf("wait interval must be positive, got %s", waitInterval)
	}
	if waitInterval.Milliseconds() > math.MaxInt32 {
		return RestartRequest{}, fmt.Errorf("wait interval %s exceeds %d milliseconds", waitInterval, math.MaxInt32)
	}
	return RestartRequest{
		version:      version,
		waitInterval: waitInterval,
		isNewVersion: isNewVersion,
	}, nil
}

// Version returns the version label offered to the operator
func (r RestartRequest) Version() string { return r.version }

// WaitInterval returns how long the prompt waits before an implicit accept
func (r RestartRequest) WaitInterval() time.Duration { return r.waitInterval }

// IsNewVersion reports whether the request carries a software update
// rather than only a configuration change
func (r RestartRequest) IsNewVersion() bool { return r.isNewVersion }

// IsZero reports whether r is the zero request
func (r RestartRequest) IsZero() bool {
	return r == RestartRequest{}
}

// Describe returns a short human readable description for prompts
func (r RestartRequest) Describe() string {
	if r.isNewVersion {
		return fmt.Sprintf("Version %s is available.", r.version)
	}
	return "The configuration was changed by the server."
}
