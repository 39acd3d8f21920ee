package controller

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ca-srg/relaunch/domain"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// ForegroundController runs the scheduler attached to the terminal
type ForegroundController struct {
	scheduler      usecase.UpdateScheduler
	statusService  usecase.StatusService
	configService  usecase.ConfigService
	restartManager usecase.RestartManager
	uiThread       *UIThread
	logger         domain.Logger
	version        string
	pid            pidFile

	// notifySignals subscribes c to process signals; replaced in tests
	notifySignals func(c chan<- os.Signal)
	stopSignals   func(c chan<- os.Signal)
}

// NewForegroundController creates a foreground controller. uiThread may be
// nil when no terminal is attached, which makes every prompt a cancel.
func NewForegroundController(
	scheduler usecase.UpdateScheduler,
	statusService usecase.StatusService,
	configService usecase.ConfigService,
	restartManager usecase.RestartManager,
	uiThread *UIThread,
	logger domain.Logger,
	version string,
	pidPath string,
) *ForegroundController {
	return &ForegroundController{
		scheduler:      scheduler,
		statusService:  statusService,
		configService:  configService,
		restartManager: restartManager,
		uiThread:       uiThread,
		logger:         logger,
		version:        version,
		pid:            pidFile{path: pidPath},
		notifySignals: func(c chan<- os.Signal) {
			signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		},
		stopSignals: func(c chan<- os.Signal) { signal.Stop(c) },
	}
}

// Run blocks until ctx is cancelled, a termination signal arrives, the
// scheduler hands over to a restarted process, or the scheduler fails.
func (f *ForegroundController) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := f.pid.write(); err != nil {
		f.logger.Warn(ctx, "Failed to write PID file", domain.NewField("error", err.Error()))
	}
	defer func() {
		if err := f.pid.remove(); err != nil {
			f.logger.Warn(ctx, "Failed to remove PID file", domain.NewField("error", err.Error()))
		}
	}()

	if f.uiThread != nil {
		f.uiThread.Start()
		defer f.uiThread.Stop()
	}

	// 新しいプロセスが起動したらこちらは終了する
	f.restartManager.SetShutdownHandler(cancel)

	_ = f.statusService.SetDaemonStarted(time.Now(), f.version)
	defer func() { _ = f.statusService.SetDaemonStopped() }()

	signals := make(chan os.Signal, 1)
	f.notifySignals(signals)
	defer f.stopSignals(signals)
	go f.handleSignals(ctx, cancel, signals)

	f.logger.Info(ctx, "relaunch started in foreground", domain.NewField("version", f.version))
	err := f.scheduler.Run(ctx)
	if err != nil {
		f.logger.Error(ctx, "Scheduler terminated", domain.NewField("error", err.Error()))
		return err
	}
	f.logger.Info(ctx, "relaunch stopped")
	return nil
}

func (f *ForegroundController) handleSignals(ctx context.Context, cancel context.CancelFunc, signals <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				f.reload(ctx)
				continue
			}
			f.logger.Info(ctx, "Received signal", domain.NewField("signal", sig.String()))
			cancel()
			return
		}
	}
}

// reload re-reads the configuration file and recomputes the next wake-up
func (f *ForegroundController) reload(ctx context.Context) {
	if err := f.configService.ReloadConfig(); err != nil {
		f.logger.Warn(ctx, "Failed to reload configuration", domain.NewField("error", err.Error()))
		return
	}
	f.logger.Info(ctx, "Configuration reloaded")
	f.scheduler.Reschedule()
}
