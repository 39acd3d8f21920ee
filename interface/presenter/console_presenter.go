package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// ConsolePresenterImpl implements ConsolePresenter for terminal output
type ConsolePresenterImpl struct {
	writer    io.Writer
	errWriter io.Writer
}

// NewConsolePresenter creates a new console presenter
func NewConsolePresenter() *ConsolePresenterImpl {
	return NewConsolePresenterWithWriter(os.Stdout, os.Stderr)
}

// NewConsolePresenterWithWriter creates a console presenter writing to w and errW
func NewConsolePresenterWithWriter(w, errW io.Writer) *ConsolePresenterImpl {
	return &ConsolePresenterImpl{writer: w, errWriter: errW}
}

// PrintVersion prints version information
func (p *ConsolePresenterImpl) PrintVersion(version string) {
	_, _ = fmt.Fprintf(p.writer, "relaunch version %s\n", version)
}

// PrintError prints an error message
func (p *ConsolePresenterImpl) PrintError(err error) {
	_, _ = fmt.Fprintf(p.errWriter, "Error: %v\n", err)
}

// PrintStatus prints the daemon status, the restart window and recent cycles
func (p *ConsolePresenterImpl) PrintStatus(report *StatusReport) error {
	_, _ = fmt.Fprintln(p.writer, "relaunch status")
	_, _ = fmt.Fprintln(p.writer, strings.Repeat("=", 50))

	_, _ = fmt.Fprintf(p.writer, "Version:        %s\n", report.Version)
	if report.DaemonRunning {
		_, _ = fmt.Fprintf(p.writer, "Daemon:         running (pid %d)\n", report.DaemonPID)
	} else {
		_, _ = fmt.Fprintln(p.writer, "Daemon:         not running")
	}
	_, _ = fmt.Fprintf(p.writer, "Config:         %s\n", report.ConfigPath)
	_, _ = fmt.Fprintf(p.writer, "Manifest:       %s\n", valueOrDash(report.Probe))
	_, _ = fmt.Fprintf(p.writer, "Restart window: %02d:00-%02d:00 %s\n",
		report.WindowStartHour, report.WindowEndHour, report.Timezone)
	_, _ = fmt.Fprintf(p.writer, "Prompt wait:    %s\n", report.WaitInterval)

	if s := report.Scheduler; s != nil {
		_, _ = fmt.Fprintln(p.writer)
		_, _ = fmt.Fprintf(p.writer, "Scheduler:      %s\n", s.State)
		if s.NextCheckAt != nil {
			_, _ = fmt.Fprintf(p.writer, "Next check:     %s\n", formatTime(*s.NextCheckAt))
		}
		if s.LastError != nil {
			_, _ = fmt.Fprintf(p.writer, "Last error:     %v\n", s.LastError)
		}
		if s.FatalError != nil {
			_, _ = fmt.Fprintf(p.writer, "Fatal error:    %v\n", s.FatalError)
		}
	}

	if len(report.Summary) > 0 {
		_, _ = fmt.Fprintln(p.writer)
		_, _ = fmt.Fprintf(p.writer, "Cycles since %s:\n", report.SummarySince.Format("2006-01-02"))
		for _, result := range entity.CycleResults {
			if n := report.Summary[result]; n > 0 {
				_, _ = fmt.Fprintf(p.writer, "  %-14s %d\n", result, n)
			}
		}
	}

	if len(report.Recent) == 0 {
		_, _ = fmt.Fprintln(p.writer)
		_, _ = fmt.Fprintln(p.writer, "No cycles recorded yet.")
		return nil
	}

	_, _ = fmt.Fprintln(p.writer)
	_, _ = fmt.Fprintln(p.writer, "Recent cycles:")
	w := tabwriter.NewWriter(p.writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "Finished\tResult\tVersion\tOutcome\tDuration\tReason")
	for _, r := range report.Recent {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			formatTime(r.FinishedAt),
			r.Result,
			valueOrDash(r.Version),
			outcomeOrDash(r.Outcome),
			r.Duration().Round(time.Millisecond),
			truncateString(valueOrDash(r.Reason), 60))
	}
	return w.Flush()
}

// PrintNextWindow prints when the next update check would start
func (p *ConsolePresenterImpl) PrintNextWindow(report *NextWindowReport) error {
	_, _ = fmt.Fprintf(p.writer, "Restart window: %02d:00-%02d:00 %s\n",
		report.WindowStartHour, report.WindowEndHour, report.Timezone)
	_, _ = fmt.Fprintf(p.writer, "Next check:     %s (in %s)\n",
		formatTime(report.WakeAt), report.Delay.Round(time.Second))
	return nil
}

// PrintCycle prints the result of a single cycle
func (p *ConsolePresenterImpl) PrintCycle(record *entity.CycleRecord) error {
	_, _ = fmt.Fprintf(p.writer, "Result:  %s\n", record.Result)
	if record.Version != "" {
		_, _ = fmt.Fprintf(p.writer, "Version: %s\n", record.Version)
	}
	if record.Outcome != entity.DialogOutcomeNone {
		_, _ = fmt.Fprintf(p.writer, "Outcome: %s\n", record.Outcome)
	}
	if record.Reason != "" {
		_, _ = fmt.Fprintf(p.writer, "Reason:  %s\n", record.Reason)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05 MST")
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func outcomeOrDash(o entity.DialogOutcome) string {
	if o == entity.DialogOutcomeNone {
		return "-"
	}
	return o.String()
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
