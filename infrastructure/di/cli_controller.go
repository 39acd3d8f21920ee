package di

import (
	"github.com/ca-srg/relaunch/interface/cli"
)

// newCLIController creates the CLI controller from the container's components
func newCLIController(c *Container) *cli.CLIController {
	return cli.NewCLIController(
		c.configService,
		c.scheduler,
		c.reporter,
		c.statusService,
		c.timezoneService,
		c.probe.Source(),
		c.version,
		c.consolePresenter,
		c.jsonPresenter,
	)
}
