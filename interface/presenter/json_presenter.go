package presenter

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// JSONPresenterImpl implements JSONPresenter for JSON output
type JSONPresenterImpl struct {
	encoder *json.Encoder
}

// NewJSONPresenter creates a new JSON presenter
func NewJSONPresenter() *JSONPresenterImpl {
	return NewJSONPresenterWithWriter(os.Stdout)
}

// NewJSONPresenterWithWriter creates a JSON presenter writing to w
func NewJSONPresenterWithWriter(w io.Writer) *JSONPresenterImpl {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &JSONPresenterImpl{encoder: encoder}
}

// PrintStatus prints the status report as JSON
func (p *JSONPresenterImpl) PrintStatus(report *StatusReport) error {
	data := map[string]interface{}{
		"version":    report.Version,
		"configPath": report.ConfigPath,
		"probe":      report.Probe,
		"daemon": map[string]interface{}{
			"running": report.DaemonRunning,
			"pid":     report.DaemonPID,
		},
		"window": map[string]interface{}{
			"startHour":      report.WindowStartHour,
			"endHour":        report.WindowEndHour,
			"timezone":       report.Timezone,
			"waitIntervalMs": report.WaitInterval.Milliseconds(),
		},
	}

	if s := report.Scheduler; s != nil {
		scheduler := map[string]interface{}{
			"state":   string(s.State),
			"running": s.IsRunning,
		}
		if s.NextCheckAt != nil {
			scheduler["nextCheckAt"] = s.NextCheckAt.Format(time.RFC3339)
		}
		if s.LastError != nil {
			scheduler["lastError"] = s.LastError.Error()
		}
		if s.FatalError != nil {
			scheduler["fatalError"] = s.FatalError.Error()
		}
		data["scheduler"] = scheduler
	}

	summary := make(map[string]int, len(report.Summary))
	for result, n := range report.Summary {
		summary[string(result)] = n
	}
	data["summary"] = map[string]interface{}{
		"since":  report.SummarySince.Format(time.RFC3339),
		"counts": summary,
	}

	recent := make([]map[string]interface{}, 0, len(report.Recent))
	for _, r := range report.Recent {
		recent = append(recent, cycleToMap(r))
	}
	data["recent"] = recent

	return p.encoder.Encode(data)
}

// PrintNextWindow prints the next check time as JSON
func (p *JSONPresenterImpl) PrintNextWindow(report *NextWindowReport) error {
	return p.encoder.Encode(map[string]interface{}{
		"now":          report.Now.Format(time.RFC3339),
		"wakeAt":       report.WakeAt.Format(time.RFC3339),
		"delaySeconds": int64(report.Delay / time.Second),
		"window": map[string]interface{}{
			"startHour": report.WindowStartHour,
			"endHour":   report.WindowEndHour,
			"timezone":  report.Timezone,
		},
	})
}

// PrintCycle prints a single cycle as JSON
func (p *JSONPresenterImpl) PrintCycle(record *entity.CycleRecord) error {
	return p.encoder.Encode(cycleToMap(record))
}

func cycleToMap(r *entity.CycleRecord) map[string]interface{} {
	m := map[string]interface{}{
		"startedAt":     r.StartedAt.Format(time.RFC3339),
		"finishedAt":    r.FinishedAt.Format(time.RFC3339),
		"durationMs":    r.Duration().Milliseconds(),
		"result":        string(r.Result),
		"newVersion":    r.NewVersion,
		"configChanged": r.ConfigChanged,
	}
	if r.ID != 0 {
		m["id"] = r.ID
	}
	if r.Version != "" {
		m["version"] = r.Version
	}
	if r.Outcome != entity.DialogOutcomeNone {
		m["outcome"] = r.Outcome.String()
	}
	if r.Reason != "" {
		m["reason"] = r.Reason
	}
	return m
}
