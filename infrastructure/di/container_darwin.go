//go:build darwin
// +build darwin

package di

import (
	"github.com/ca-srg/relaunch/interface/controller"
)

// DarwinContainer holds Darwin-specific components
type DarwinContainer struct {
	systrayController *controller.SystrayController
	daemonController  *controller.DaemonController
}

// initPlatformUI makes the menu bar the prompt presenter in daemon mode
func (c *Container) initPlatformUI() error {
	if !c.daemonMode {
		return nil
	}

	systrayController := controller.NewSystrayController(c.statusService, c.registry)
	c.promptPresenter = systrayController
	c.notifier = systrayController
	c.darwinContainer = &DarwinContainer{systrayController: systrayController}
	return nil
}

// initDaemonPlatform initializes daemon components for Darwin
func (c *Container) initDaemonPlatform() error {
	if c.darwinContainer == nil {
		return nil
	}

	c.darwinContainer.daemonController = controller.NewDaemonController(
		c.config,
		c.configService,
		c.scheduler,
		c.statusService,
		c.restartManager,
		c.uiThread,
		c.darwinContainer.systrayController,
		c.CreateLogger("daemon"),
		c.version,
	)
	return nil
}

// DaemonSupported reports whether this build can run the menu bar daemon
func DaemonSupported() bool {
	return true
}

// GetSystrayController returns the systray controller (Darwin only)
func (c *Container) GetSystrayController() *controller.SystrayController {
	if c.darwinContainer != nil {
		return c.darwinContainer.systrayController
	}
	return nil
}

// GetDaemonController returns the daemon controller (Darwin only)
func (c *Container) GetDaemonController() *controller.DaemonController {
	if c.darwinContainer != nil {
		return c.darwinContainer.daemonController
	}
	return nil
}

// GetDaemonRunner returns the daemon controller, or nil when daemon mode is off
func (c *Container) GetDaemonRunner() DaemonRunner {
	if d := c.GetDaemonController(); d != nil {
		return d
	}
	return nil
}
