package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/interface/controller"
	"github.com/ca-srg/relaunch/interface/presenter"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

const (
	// recentCycles is how many history rows --status shows
	recentCycles = 10

	// summaryPeriod is the window of the per-result counts in --status
	summaryPeriod = 30 * 24 * time.Hour
)

// CLIController handles the one-shot command-line operations
type CLIController struct {
	configService   usecase.ConfigService
	scheduler       usecase.UpdateScheduler
	reporter        usecase.CycleReporter
	statusService   usecase.StatusService
	timezoneService repository.TimezoneService
	probeSource     string
	version         string

	consolePresenter presenter.ConsolePresenter
	jsonPresenter    presenter.JSONPresenter
	jsonOutput       bool

	now func() time.Time
}

// NewCLIController creates a new CLI controller
func NewCLIController(
	configService usecase.ConfigService,
	scheduler usecase.UpdateScheduler,
	reporter usecase.CycleReporter,
	statusService usecase.StatusService,
	timezoneService repository.TimezoneService,
	probeSource string,
	version string,
	consolePresenter presenter.ConsolePresenter,
	jsonPresenter presenter.JSONPresenter,
) *CLIController {
	return &CLIController{
		configService:    configService,
		scheduler:        scheduler,
		reporter:         reporter,
		statusService:    statusService,
		timezoneService:  timezoneService,
		probeSource:      probeSource,
		version:          version,
		consolePresenter: consolePresenter,
		jsonPresenter:    jsonPresenter,
		now:              time.Now,
	}
}

// SetJSONOutput switches the output to JSON
func (c *CLIController) SetJSONOutput(enabled bool) {
	c.jsonOutput = enabled
}

// ShowStatus prints the daemon state, the restart window and recent cycles
func (c *CLIController) ShowStatus(ctx context.Context) error {
	cfg := c.configService.GetConfig()
	now := c.now()

	report := &presenter.StatusReport{
		Version:      c.version,
		ConfigPath:   c.configService.GetConfigPath(),
		Probe:        c.probeSource,
		Timezone:     c.timezoneName(),
		WaitInterval: cfg.WaitInterval(),
		SummarySince: now.Add(-summaryPeriod),
	}
	if cfg.Update != nil {
		report.WindowStartHour = cfg.Update.WindowStartHour
		report.WindowEndHour = cfg.Update.WindowEndHour
	}
	if cfg.Daemon != nil {
		report.DaemonPID, report.DaemonRunning = controller.ReadPIDFile(cfg.Daemon.PidFile)
		if !report.DaemonRunning {
			report.DaemonPID = 0
		}
	}

	// 同一プロセス内でスケジューラが動いている場合のみ意味がある
	if c.statusService != nil {
		if status, err := c.statusService.GetStatus(); err == nil && status.IsRunning {
			report.Scheduler = status
		}
	}

	recent, err := c.reporter.Recent(ctx, recentCycles)
	if err != nil {
		return fmt.Errorf("failed to read cycle history: %w", err)
	}
	report.Recent = recent

	summary, err := c.reporter.Summary(ctx, report.SummarySince)
	if err != nil {
		return fmt.Errorf("failed to summarize cycle history: %w", err)
	}
	report.Summary = summary

	if c.jsonOutput {
		return c.jsonPresenter.PrintStatus(report)
	}
	return c.consolePresenter.PrintStatus(report)
}

// ShowNextWindow prints when the next update check would run
func (c *CLIController) ShowNextWindow() error {
	cfg := c.configService.GetConfig()
	if cfg.Update == nil {
		return fmt.Errorf("update section is missing from the configuration")
	}

	now := c.now()
	delay, err := c.scheduler.NextDelay(now)
	if err != nil {
		return fmt.Errorf("failed to compute next window: %w", err)
	}

	report := &presenter.NextWindowReport{
		Now:             now,
		Delay:           delay,
		WakeAt:          now.Add(delay).In(c.location()),
		WindowStartHour: cfg.Update.WindowStartHour,
		WindowEndHour:   cfg.Update.WindowEndHour,
		Timezone:        c.timezoneName(),
	}
	if c.jsonOutput {
		return c.jsonPresenter.PrintNextWindow(report)
	}
	return c.consolePresenter.PrintNextWindow(report)
}

// CheckNow runs a single cycle immediately and prints its result
func (c *CLIController) CheckNow(ctx context.Context) error {
	record := c.scheduler.RunCycle(ctx)
	if c.jsonOutput {
		return c.jsonPresenter.PrintCycle(record)
	}
	return c.consolePresenter.PrintCycle(record)
}

func (c *CLIController) location() *time.Location {
	if c.timezoneService == nil {
		return time.Local
	}
	loc, err := c.timezoneService.GetConfiguredTimezone()
	if err != nil || loc == nil {
		return time.Local
	}
	return loc
}

func (c *CLIController) timezoneName() string {
	return c.location().String()
}
