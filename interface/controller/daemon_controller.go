//go:build darwin
// +build darwin

package controller

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getlantern/systray"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/infrastructure/config"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// statusRefreshInterval is how often the menu bar status line is redrawn
const statusRefreshInterval = 30 * time.Second

// trayView is the part of the menu bar the daemon drives
type trayView interface {
	OnReady()
	OnExit()
	CheckNowChannel() <-chan struct{}
	SettingsChannel() <-chan struct{}
	QuitChannel() <-chan struct{}
	UpdateStatus(status *usecase.StatusInfo)
	Notify(title, message string) error
}

// DaemonController runs the scheduler behind the menu bar
type DaemonController struct {
	config         *config.AppConfig
	configService  usecase.ConfigService
	scheduler      usecase.UpdateScheduler
	statusService  usecase.StatusService
	restartManager usecase.RestartManager
	uiThread       *UIThread
	tray           trayView
	logger         domain.Logger
	version        string
	pid            pidFile

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stopOnce   sync.Once
	stopPower  func()
	quitTray   func()
	openEditor func(path string) error
}

// NewDaemonController creates a new daemon controller
func NewDaemonController(
	cfg *config.AppConfig,
	configService usecase.ConfigService,
	scheduler usecase.UpdateScheduler,
	statusService usecase.StatusService,
	restartManager usecase.RestartManager,
	uiThread *UIThread,
	systrayCtrl *SystrayController,
	logger domain.Logger,
	version string,
) *DaemonController {
	pidPath := ""
	if cfg.Daemon != nil {
		pidPath = cfg.Daemon.PidFile
	}
	return &DaemonController{
		config:         cfg,
		configService:  configService,
		scheduler:      scheduler,
		statusService:  statusService,
		restartManager: restartManager,
		uiThread:       uiThread,
		tray:           systrayCtrl,
		logger:         logger,
		version:        version,
		pid:            pidFile{path: pidPath},
		quitTray:       systray.Quit,
		openEditor:     openInExternalEditor,
	}
}

// Run starts the daemon and blocks on the menu bar run loop, which must
// own the main thread on macOS.
func (d *DaemonController) Run() {
	if d.config.Daemon != nil && d.config.Daemon.HideFromDock {
		HideFromDock()
	}

	if err := d.Start(); err != nil {
		d.logger.Error(context.Background(), "Failed to start daemon", domain.NewField("error", err.Error()))
		return
	}

	systray.Run(func() {
		d.tray.OnReady()
		d.uiThread.Start()
	}, func() {
		d.uiThread.Stop()
		d.tray.OnExit()
		d.Stop()
	})
}

// Start launches the scheduler and the menu handler
func (d *DaemonController) Start() error {
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.logger.Info(d.ctx, "Starting relaunch daemon...", domain.NewField("version", d.version))

	if err := d.pid.write(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	if err := d.statusService.SetDaemonStarted(time.Now(), d.version); err != nil {
		return fmt.Errorf("failed to update daemon status: %w", err)
	}

	// 新しいプロセスが起動したらメニューバーごと終了する
	d.restartManager.SetShutdownHandler(d.shutdown)

	d.wg.Add(2)
	go d.runScheduler()
	go d.handleMenu()

	if stop, err := WatchPowerEvents(d.onPowerEvent); err != nil {
		d.logger.Warn(d.ctx, "Failed to watch system power events", domain.NewField("error", err.Error()))
	} else {
		d.stopPower = stop
	}

	d.setupSignalHandlers()
	d.logger.Info(d.ctx, "Daemon started successfully")
	return nil
}

// Stop stops the daemon gracefully. Safe to call more than once.
func (d *DaemonController) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info(d.ctx, "Stopping relaunch daemon...")
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()

		if d.stopPower != nil {
			d.stopPower()
		}
		if err := d.statusService.SetDaemonStopped(); err != nil {
			d.logger.Error(d.ctx, "Failed to update daemon status", domain.NewField("error", err.Error()))
		}
		if err := d.pid.remove(); err != nil {
			d.logger.Error(d.ctx, "Failed to remove PID file", domain.NewField("error", err.Error()))
		}
		d.logger.Info(d.ctx, "Daemon stopped successfully")
	})
}

// shutdown cancels the loops and leaves the menu bar run loop
func (d *DaemonController) shutdown() {
	d.cancel()
	d.quitTray()
}

func (d *DaemonController) runScheduler() {
	defer d.wg.Done()

	if err := d.scheduler.Run(d.ctx); err != nil {
		d.logger.Error(d.ctx, "Scheduler terminated", domain.NewField("error", err.Error()))
		_ = d.tray.Notify("relaunch stopped", "Automatic updates are no longer scheduled. Restart relaunch to resume.")
	}
	d.refreshStatus()
}

// handleMenu serves menu actions and keeps the status line fresh
func (d *DaemonController) handleMenu() {
	defer d.wg.Done()

	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.refreshStatus()

		case <-d.tray.CheckNowChannel():
			d.checkNow()

		case <-d.tray.SettingsChannel():
			d.openSettings()

		case <-d.tray.QuitChannel():
			d.logger.Info(d.ctx, "Quit requested from menu")
			d.shutdown()
			return
		}
	}
}

// checkNow runs one cycle outside the schedule. It is skipped when the
// scheduled cycle is already running.
func (d *DaemonController) checkNow() {
	d.logger.Info(d.ctx, "Manual update check requested")
	record := d.scheduler.RunCycle(d.ctx)
	d.refreshStatus()

	switch record.Result {
	case entity.CycleResultNoAction:
		_ = d.tray.Notify("relaunch", fmt.Sprintf("You are up to date (%s).", d.version))
	case entity.CycleResultProbeFailed:
		_ = d.tray.Notify("Update check failed", record.Reason)
	case entity.CycleResultGateBusy:
		_ = d.tray.Notify("relaunch", "A restart is already in progress.")
	case entity.CycleResultSkipped:
		_ = d.tray.Notify("relaunch", "An update check is already running.")
	case entity.CycleResultRestartFailed:
		_ = d.tray.Notify("Restart failed", record.Reason)
	}
}

func (d *DaemonController) refreshStatus() {
	status, err := d.statusService.GetStatus()
	if err != nil {
		return
	}
	d.tray.UpdateStatus(status)
}

func (d *DaemonController) onPowerEvent(event PowerEvent) {
	if event == PowerEventWake {
		d.logger.Info(d.ctx, "System woke up, recomputing next update check")
		d.scheduler.Reschedule()
	}
}

// setupSignalHandlers sets up signal handlers for graceful shutdown and reload
func (d *DaemonController) setupSignalHandlers() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigChan)
		for {
			select {
			case <-d.ctx.Done():
				return
			case sig := <-sigChan:
				if sig == syscall.SIGHUP {
					if err := d.configService.ReloadConfig(); err != nil {
						d.logger.Warn(d.ctx, "Failed to reload configuration", domain.NewField("error", err.Error()))
						continue
					}
					d.scheduler.Reschedule()
					continue
				}
				d.logger.Info(d.ctx, "Received signal", domain.NewField("signal", sig.String()))
				d.shutdown()
				return
			}
		}
	}()
}

// openSettings opens the configuration file in an editor
func (d *DaemonController) openSettings() {
	configPath := d.configService.GetConfigPath()
	if err := d.configService.EnsureConfigExists(); err != nil {
		d.logger.Error(d.ctx, "Failed to ensure config file", domain.NewField("error", err.Error()))
		_ = d.tray.Notify("Error", "Failed to create the configuration file")
		return
	}

	if err := d.openEditor(configPath); err != nil {
		d.logger.Error(d.ctx, "Failed to open settings", domain.NewField("error", err.Error()))
		_ = d.tray.Notify("Error", fmt.Sprintf("Failed to open settings: %v", err))
		return
	}
	_ = d.tray.Notify("Settings", "Window and prompt changes apply at the next cycle. Send SIGHUP to apply them now.")
	d.logger.Info(d.ctx, "Settings opened", domain.NewField("config_path", configPath))
}

// openInExternalEditor は指定されたファイルをテキストエディタで開く
func openInExternalEditor(filePath string) error {
	cmd := exec.Command("open", "-t", filePath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	// エディタは独立して動作するので終了を待たない
	go func() { _ = cmd.Wait() }()
	return nil
}
