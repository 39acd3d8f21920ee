package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/infrastructure/di"
	"github.com/ca-srg/relaunch/usecase/impl"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// runMode is the single action selected on the command line
type runMode int

const (
	modeAuto runMode = iota
	modeDaemon
	modeForeground
	modeCheckNow
	modeStatus
	modeNextWindow
)

// options holds the parsed command line
type options struct {
	mode    runMode
	debug   bool
	json    bool
	help    bool
	version bool
}

func main() {
	opts, flagSet, err := parseOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(os.Stdout, flagSet)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		printHelp(os.Stderr, flagSet)
		os.Exit(2)
	}
	if opts.help {
		printHelp(os.Stdout, flagSet)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseOptions parses args and rejects conflicting actions
func parseOptions(args []string) (*options, *pflag.FlagSet, error) {
	var (
		daemon, foreground, checkNow, status, nextWindow bool
		opts                                             options
	)

	flagSet := pflag.NewFlagSet("relaunch", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&daemon, "daemon", false, "run as a menu bar app (macOS only)")
	flagSet.BoolVar(&foreground, "foreground", false, "run the scheduler in the terminal")
	flagSet.BoolVar(&checkNow, "check-now", false, "run one update cycle immediately and exit")
	flagSet.BoolVar(&status, "status", false, "show daemon state, restart window and recent cycles")
	flagSet.BoolVar(&nextWindow, "next-window", false, "show when the next update check would run")
	flagSet.BoolVar(&opts.json, "json", false, "print --status, --next-window or --check-now output as JSON")
	flagSet.BoolVar(&opts.debug, "debug", false, "enable debug logging to stderr")
	flagSet.BoolVarP(&opts.version, "version", "v", false, "print the version and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}

	selected := 0
	for mode, set := range map[runMode]bool{
		modeDaemon:     daemon,
		modeForeground: foreground,
		modeCheckNow:   checkNow,
		modeStatus:     status,
		modeNextWindow: nextWindow,
	} {
		if set {
			opts.mode = mode
			selected++
		}
	}
	if selected > 1 {
		return nil, flagSet, fmt.Errorf("--daemon, --foreground, --check-now, --status and --next-window are mutually exclusive")
	}
	if opts.json && opts.mode != modeStatus && opts.mode != modeNextWindow && opts.mode != modeCheckNow {
		return nil, flagSet, fmt.Errorf("--json requires --status, --next-window or --check-now")
	}
	return &opts, flagSet, nil
}

// resolveMode picks daemon or foreground when no action was given
func resolveMode(requested runMode, daemonWired bool) runMode {
	if requested != modeAuto {
		return requested
	}
	if daemonWired {
		return modeDaemon
	}
	return modeForeground
}

func run(opts *options) error {
	runningVersion := impl.RunningVersion(version)
	if opts.version {
		fmt.Printf("relaunch version %s\n", runningVersion)
		return nil
	}

	// The daemon flag decides the prompt surface, so it is checked before wiring
	mode := opts.mode
	if mode == modeDaemon && !di.DaemonSupported() {
		return fmt.Errorf("daemon mode is only available on macOS")
	}

	containerOpts := []di.ContainerOption{
		di.WithVersion(runningVersion),
		di.WithDebugMode(opts.debug),
		di.WithDaemonMode(mode == modeDaemon),
		di.WithAutoMode(mode == modeAuto),
	}

	container, err := di.NewContainer(containerOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer container.Close()

	mode = resolveMode(mode, container.DaemonMode())

	ctx := context.Background()
	logger := container.CreateLogger("main")
	if from := impl.RestartedFrom(); from != "" {
		logger.Info(ctx, "Restarted after update",
			domain.NewField("from_version", from),
			domain.NewField("version", runningVersion))
	}

	cliController := container.GetCLIController()
	cliController.SetJSONOutput(opts.json)

	switch mode {
	case modeStatus:
		return cliController.ShowStatus(ctx)

	case modeNextWindow:
		return cliController.ShowNextWindow()

	case modeCheckNow:
		if err := container.ProbeError(); err != nil {
			return fmt.Errorf("update probe is not configured: %w", err)
		}
		// The process ends when CheckNow returns, after the cycle is recorded
		container.GetRestartManager().SetShutdownHandler(func() {})
		if !container.Headless() {
			uiThread := container.GetUIThread()
			uiThread.Start()
			defer uiThread.Stop()
		}
		return cliController.CheckNow(ctx)

	case modeDaemon:
		if err := container.ProbeError(); err != nil {
			return fmt.Errorf("update probe is not configured: %w", err)
		}
		daemon := container.GetDaemonRunner()
		if daemon == nil {
			return fmt.Errorf("daemon mode is not available")
		}
		// The menu bar run loop must own the main thread on macOS
		daemon.Run()
		return nil

	default:
		if err := container.ProbeError(); err != nil {
			return fmt.Errorf("update probe is not configured: %w", err)
		}
		return container.GetForegroundController().Run(ctx)
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	_, _ = fmt.Fprintf(w, `relaunch keeps a long-running application up to date. It checks a release
manifest once a day inside the configured restart window, asks before
restarting, and never interrupts work that is still in progress.

Usage:
  relaunch [flags]

Without an action flag relaunch runs as a menu bar app when daemon mode is
enabled in the configuration (macOS), and in the terminal otherwise.

Flags:
%s`, flagSet.FlagUsages())
}
