package entity

import "time"

// CycleResult is how a scheduler cycle ended
type CycleResult string

const (
	CycleResultNoAction    CycleResult = "no_action"
	CycleResultProbeFailed CycleResult = "probe_failed"
	CycleResultGateBusy    CycleResult = "gate_busy"
	CycleResultCancelled   CycleResult = "cancelled"
	CycleResultVetoed      CycleResult = "vetoed"
	CycleResultRestarting  CycleResult = "restarting"

	// CycleResultRestartFailed means consent and audit passed but the new
	// process could not be started
	CycleResultRestartFailed CycleResult = "restart_failed"

	// CycleResultSkipped is returned to a manual check that found another
	// cycle running. It is never recorded.
	CycleResultSkipped CycleResult = "skipped"
)

// CycleResults lists every result in a stable order
var CycleResults = []CycleResult{
	CycleResultNoAction,
	CycleResultProbeFailed,
	CycleResultGateBusy,
	CycleResultCancelled,
	CycleResultVetoed,
	CycleResultRestarting,
	CycleResultRestartFailed,
}

// CycleRecord is the history entry written at the end of every cycle
type CycleRecord struct {
	ID            int64
	StartedAt     time.Time
	FinishedAt    time.Time
	Result        CycleResult
	Version       string
	NewVersion    bool
	ConfigChanged bool
	Outcome       DialogOutcome
	Reason        string
}

// Duration returns how long the cycle took
func (r *CycleRecord) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
