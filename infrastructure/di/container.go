package di

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/clock"
	"github.com/ca-srg/relaunch/infrastructure/config"
	"github.com/ca-srg/relaunch/infrastructure/logging"
	infraRepo "github.com/ca-srg/relaunch/infrastructure/repository"
	"github.com/ca-srg/relaunch/infrastructure/service"
	"github.com/ca-srg/relaunch/interface/cli"
	"github.com/ca-srg/relaunch/interface/controller"
	"github.com/ca-srg/relaunch/interface/presenter"
	"github.com/ca-srg/relaunch/usecase/impl"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// Container is the dependency injection container
type Container struct {
	// Configuration
	config        *config.AppConfig
	configRepo    repository.ConfigRepository
	configService usecase.ConfigService

	// Repositories
	probe          repository.UpdateProbe
	probeErr       error
	history        repository.HistoryRepository
	telemetrySinks []repository.TelemetryRepository

	// Services
	timezoneService repository.TimezoneService

	// Use Cases
	statusService  usecase.StatusService
	restartManager usecase.RestartManager
	gate           usecase.RestartGate
	registry       usecase.SurfaceRegistry
	reconfigStore  usecase.ReconfigStore
	reporter       usecase.CycleReporter
	dialog         usecase.ConfirmationDialog
	audit          usecase.ShutdownSafetyAudit
	scheduler      usecase.UpdateScheduler

	// User interface
	uiThread        *controller.UIThread
	promptPresenter usecase.PromptPresenter
	notifier        usecase.Notifier
	headless        bool

	// Presenters
	consolePresenter presenter.ConsolePresenter
	jsonPresenter    presenter.JSONPresenter

	// Controllers
	cliController        *cli.CLIController
	foregroundController *controller.ForegroundController
	darwinContainer      *DarwinContainer

	// Logging
	loggerFactory *logging.LoggerFactoryImpl
	logger        domain.Logger
	logFile       io.Closer

	// Options
	debugMode  bool
	daemonMode bool
	autoMode   bool
	version    string
}

// ContainerOption is a function that configures the container
type ContainerOption func(*Container)

// WithDebugMode sets the debug mode
func WithDebugMode(debug bool) ContainerOption {
	return func(c *Container) {
		c.debugMode = debug
	}
}

// WithConfigRepository loads the configuration from repo instead of the default location
func WithConfigRepository(repo repository.ConfigRepository) ContainerOption {
	return func(c *Container) {
		c.configRepo = repo
	}
}

// WithDaemonMode selects the menu bar user interface instead of the terminal
func WithDaemonMode(daemon bool) ContainerOption {
	return func(c *Container) {
		c.daemonMode = daemon
	}
}

// WithAutoMode enables daemon mode when the configuration asks for it and
// the platform supports it
func WithAutoMode(auto bool) ContainerOption {
	return func(c *Container) {
		c.autoMode = auto
	}
}

// WithVersion sets the version compiled into the binary
func WithVersion(version string) ContainerOption {
	return func(c *Container) {
		c.version = version
	}
}

// NewContainer creates a new DI container
func NewContainer(opts ...ContainerOption) (*Container, error) {
	container := &Container{version: "dev"}

	// Apply options
	for _, opt := range opts {
		opt(container)
	}

	// Load configuration
	if err := container.initConfig(); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}

	// Initialize logging
	if err := container.initLogging(); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	// Initialize domain services
	if err := container.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize domain services: %w", err)
	}

	// Initialize repositories
	if err := container.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	// Initialize use cases
	if err := container.initUseCases(); err != nil {
		return nil, fmt.Errorf("failed to initialize use cases: %w", err)
	}

	// Initialize the prompt surface (terminal or menu bar)
	if err := container.initUserInterface(); err != nil {
		return nil, fmt.Errorf("failed to initialize user interface: %w", err)
	}

	// Initialize the scheduler loop
	container.initScheduler()

	// Initialize presenters
	if err := container.initPresenters(); err != nil {
		return nil, fmt.Errorf("failed to initialize presenters: %w", err)
	}

	// Initialize controllers
	if err := container.initControllers(); err != nil {
		return nil, fmt.Errorf("failed to initialize controllers: %w", err)
	}

	// Initialize Daemon components if enabled
	if err := container.initDaemonPlatform(); err != nil {
		return nil, fmt.Errorf("failed to initialize daemon: %w", err)
	}

	return container, nil
}

// initConfig initializes configuration
func (c *Container) initConfig() error {
	if c.configRepo == nil {
		c.configRepo = infraRepo.NewJSONConfigRepository()
	}

	// Create temporary NoOpLogger for initial configuration loading
	tempLogger := &logging.NoOpLogger{}

	configService, err := impl.NewConfigService(c.configRepo, impl.NewConfigMigrationService(tempLogger), tempLogger)
	if err != nil {
		// ConfigServiceがないとシステムが動作しないので、エラーを返す
		return fmt.Errorf("failed to create config service: %w", err)
	}
	c.configService = configService

	// Ensure config file exists (create template if needed)
	if err := configService.EnsureConfigExists(); err != nil {
		// エラーメッセージを標準エラー出力に表示
		fmt.Fprintf(os.Stderr, "Warning: Failed to create config file: %v\n", err)
		// デフォルト設定で継続
	}

	cfg := configService.GetConfig()
	defaults := config.DefaultConfig()

	// Sections dropped from the minimal template fall back to the defaults
	if cfg.Update == nil {
		cfg.Update = defaults.Update
	}
	if cfg.Probe == nil {
		cfg.Probe = defaults.Probe
	}
	if cfg.History == nil {
		cfg.History = defaults.History
	}
	if cfg.Daemon == nil {
		cfg.Daemon = defaults.Daemon
	}
	if cfg.Logging == nil {
		cfg.Logging = defaults.Logging
	}

	// Override debug mode if set via command line
	if c.debugMode {
		cfg.Logging.Debug = true
	}
	if c.autoMode && cfg.Daemon.Enabled && DaemonSupported() {
		c.daemonMode = true
	}
	if c.daemonMode {
		cfg.Daemon.Enabled = true
	}

	c.config = cfg
	return nil
}

// initLogging initializes logging components
func (c *Container) initLogging() error {
	var out io.Writer = os.Stderr

	// The menu bar app has no terminal, so local log lines go to the daemon log file
	if c.daemonMode && !c.config.Logging.Debug && c.config.Daemon.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.config.Daemon.LogPath), 0755); err == nil {
			f, err := os.OpenFile(c.config.Daemon.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Failed to open daemon log file: %v\n", err)
			} else {
				out = f
				c.logFile = f
			}
		}
	}

	c.loggerFactory = logging.NewLoggerFactoryWithWriter(c.config.Logging, out)
	c.logger = c.loggerFactory.CreateLogger("relaunch")
	return nil
}

// initDomainServices initializes domain services
func (c *Container) initDomainServices() error {
	c.timezoneService = service.NewTimezoneServiceImpl(c.config, c.CreateLogger("timezone"))
	return nil
}

// initRepositories initializes the probe, the history store and the telemetry sinks
func (c *Container) initRepositories() error {
	ctx := context.Background()

	c.initProbe(ctx)

	if c.config.History != nil && c.config.History.Path != "" {
		history, err := infraRepo.NewSQLiteHistoryRepository(c.config.History.Path)
		if err != nil {
			// 履歴がなくても再起動の判断には影響しない
			c.logger.Warn(ctx, "Cycle history disabled",
				domain.NewField("path", c.config.History.Path),
				domain.NewField("error", err.Error()))
		} else {
			c.history = history
		}
	}

	c.initTelemetry(ctx)
	return nil
}

// initProbe creates the manifest probe selected by Update.ProbeSource.
// A probe that cannot be built is remembered so that one-shot commands
// not needing it still work.
func (c *Container) initProbe(ctx context.Context) {
	var (
		probe repository.UpdateProbe
		err   error
	)
	switch c.config.Update.ProbeSource {
	case config.ProbeSourceS3:
		probe, err = infraRepo.NewS3ManifestProbe(c.config.Probe, c.config.Update.Channel)
	default:
		probe, err = infraRepo.NewHTTPManifestProbe(ctx, c.config.Probe, c.config.Update.Channel)
	}
	if err != nil {
		c.probeErr = err
		c.probe = unavailableProbe{err: err}
		return
	}
	c.probe = probe
}

// initTelemetry creates every enabled cycle outcome sink
func (c *Container) initTelemetry(ctx context.Context) {
	t := c.config.Telemetry
	if t == nil {
		return
	}
	logger := c.CreateLogger("telemetry")

	if p := t.Prometheus; p != nil && p.Enabled && p.RemoteWriteURL != "" {
		sink, err := infraRepo.NewPrometheusTelemetryRepository(p)
		if err != nil {
			logger.Warn(ctx, "Prometheus telemetry disabled", domain.NewField("error", err.Error()))
		} else {
			c.telemetrySinks = append(c.telemetrySinks, sink)
		}
	}
	if cw := t.CloudWatch; cw != nil && cw.Enabled {
		sink, err := infraRepo.NewCloudWatchTelemetryRepository(cw)
		if err != nil {
			logger.Warn(ctx, "CloudWatch telemetry disabled", domain.NewField("error", err.Error()))
		} else {
			c.telemetrySinks = append(c.telemetrySinks, sink)
		}
	}
	if cm := t.CloudMonitoring; cm != nil && cm.Enabled {
		sink, err := infraRepo.NewCloudMonitoringTelemetryRepository(ctx, cm)
		if err != nil {
			logger.Warn(ctx, "Cloud Monitoring telemetry disabled", domain.NewField("error", err.Error()))
		} else {
			c.telemetrySinks = append(c.telemetrySinks, sink)
		}
	}
}

// initUseCases initializes use case implementations
func (c *Container) initUseCases() error {
	c.statusService = impl.NewStatusService()
	c.gate = impl.NewRestartGate()
	c.registry = impl.NewSurfaceRegistry()
	c.reconfigStore = impl.NewReconfigStore(c.configService, c.CreateLogger("reconfig"))

	restartManager, err := impl.NewRestartManager(c.version)
	if err != nil {
		return fmt.Errorf("failed to create restart manager: %w", err)
	}
	c.restartManager = restartManager

	retention := 0
	if c.config.History != nil {
		retention = c.config.History.RetentionDays
	}
	c.reporter = impl.NewCycleReporter(c.history, c.telemetrySinks, c.timezoneService, retention, c.CreateLogger("reporter"))
	return nil
}

// initUserInterface picks the prompt presenter and starts wiring the
// confirmation dialog and the safety audit around it
func (c *Container) initUserInterface() error {
	c.uiThread = controller.NewUIThread()

	if err := c.initPlatformUI(); err != nil {
		return err
	}
	if c.promptPresenter == nil {
		terminal := controller.NewTerminalPromptPresenter()
		c.promptPresenter = terminal
		c.notifier = terminal
		c.headless = !terminal.Interactive()
	}

	logger := c.CreateLogger("dialog")
	c.dialog = impl.NewConfirmationDialog(c.uiThread, c.promptPresenter, c.registry, clock.Real(), logger)
	c.audit = impl.NewSafetyAudit(c.registry, c.uiThread, c.CreateLogger("audit"))
	return nil
}

// initScheduler wires the update scheduler
func (c *Container) initScheduler() {
	c.scheduler = impl.NewUpdateScheduler(impl.UpdateSchedulerDeps{
		ConfigService:   c.configService,
		Probe:           c.probe,
		ReconfigStore:   c.reconfigStore,
		Gate:            c.gate,
		Dialog:          c.dialog,
		Audit:           c.audit,
		RestartManager:  c.restartManager,
		StatusService:   c.statusService,
		Reporter:        c.reporter,
		Notifier:        c.notifier,
		TimezoneService: c.timezoneService,
		Clock:           clock.Real(),
		Logger:          c.CreateLogger("scheduler"),
		CurrentVersion:  c.version,
	})
}

// initPresenters initializes presenter implementations
func (c *Container) initPresenters() error {
	c.consolePresenter = presenter.NewConsolePresenter()
	c.jsonPresenter = presenter.NewJSONPresenter()
	return nil
}

// initControllers initializes controller implementations
func (c *Container) initControllers() error {
	c.cliController = newCLIController(c)

	pidPath := ""
	if c.config.Daemon != nil {
		pidPath = c.config.Daemon.PidFile
	}
	// Without a terminal the UI thread is never started and prompts cancel
	uiThread := c.uiThread
	if c.headless {
		uiThread = nil
	}
	c.foregroundController = controller.NewForegroundController(
		c.scheduler,
		c.statusService,
		c.configService,
		c.restartManager,
		uiThread,
		c.CreateLogger("foreground"),
		c.version,
		pidPath,
	)
	return nil
}

// Close flushes log shippers and releases the history store and telemetry sinks
func (c *Container) Close() {
	ctx := context.Background()
	for _, sink := range c.telemetrySinks {
		if err := sink.Close(); err != nil {
			c.logger.Warn(ctx, "Failed to close telemetry sink",
				domain.NewField("sink", sink.Name()),
				domain.NewField("error", err.Error()))
		}
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil {
			c.logger.Warn(ctx, "Failed to close cycle history", domain.NewField("error", err.Error()))
		}
	}
	if c.loggerFactory != nil {
		c.loggerFactory.Shutdown()
	}
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}

// GetConfig returns the application configuration
func (c *Container) GetConfig() *config.AppConfig {
	return c.config
}

// DaemonMode reports whether the container was wired for the menu bar daemon
func (c *Container) DaemonMode() bool {
	return c.daemonMode
}

// GetConfigService returns the config service
func (c *Container) GetConfigService() usecase.ConfigService {
	return c.configService
}

// GetProbe returns the manifest probe
func (c *Container) GetProbe() repository.UpdateProbe {
	return c.probe
}

// ProbeError returns why the manifest probe could not be created, if it could not
func (c *Container) ProbeError() error {
	return c.probeErr
}

// GetScheduler returns the update scheduler
func (c *Container) GetScheduler() usecase.UpdateScheduler {
	return c.scheduler
}

// GetStatusService returns the status service
func (c *Container) GetStatusService() usecase.StatusService {
	return c.statusService
}

// GetCycleReporter returns the cycle reporter
func (c *Container) GetCycleReporter() usecase.CycleReporter {
	return c.reporter
}

// GetRestartManager returns the restart manager
func (c *Container) GetRestartManager() usecase.RestartManager {
	return c.restartManager
}

// GetTimezoneService returns the timezone service
func (c *Container) GetTimezoneService() repository.TimezoneService {
	return c.timezoneService
}

// GetUIThread returns the UI thread used by prompts and the safety audit
func (c *Container) GetUIThread() *controller.UIThread {
	return c.uiThread
}

// Headless reports that no one can answer a restart prompt
func (c *Container) Headless() bool {
	return c.headless
}

// GetConsolePresenter returns the console presenter
func (c *Container) GetConsolePresenter() presenter.ConsolePresenter {
	return c.consolePresenter
}

// GetJSONPresenter returns the JSON presenter
func (c *Container) GetJSONPresenter() presenter.JSONPresenter {
	return c.jsonPresenter
}

// GetCLIController returns the CLI controller
func (c *Container) GetCLIController() *cli.CLIController {
	return c.cliController
}

// GetForegroundController returns the foreground controller
func (c *Container) GetForegroundController() *controller.ForegroundController {
	return c.foregroundController
}

// GetLogger returns the main logger
func (c *Container) GetLogger() domain.Logger {
	return c.logger
}

// CreateLogger creates a new logger for a specific component
func (c *Container) CreateLogger(component string) domain.Logger {
	if c.loggerFactory == nil {
		return &logging.NoOpLogger{}
	}
	return c.loggerFactory.CreateLogger(component)
}

// unavailableProbe stands in for a probe whose configuration is incomplete.
// Every check fails, which the scheduler treats as a retryable probe failure.
type unavailableProbe struct {
	err error
}

func (p unavailableProbe) Source() string {
	return "unconfigured"
}

func (p unavailableProbe) Check(ctx context.Context, currentVersion string) (*entity.ProbeResult, error) {
	return nil, domain.ErrProbeWithCause(p.Source(), p.err)
}

// DaemonRunner runs the menu bar daemon on the main thread until it quits
type DaemonRunner interface {
	Run()
}
