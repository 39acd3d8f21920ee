//go:build !darwin
// +build !darwin

package di

// DarwinContainer holds Darwin-specific components (stub for non-Darwin)
type DarwinContainer struct{}

// initPlatformUI keeps the terminal presenter on non-Darwin platforms
func (c *Container) initPlatformUI() error {
	return nil
}

// initDaemonPlatform initializes daemon components (stub for non-Darwin)
func (c *Container) initDaemonPlatform() error {
	// No menu bar daemon on non-Darwin platforms
	return nil
}

// DaemonSupported reports whether this build can run the menu bar daemon
func DaemonSupported() bool {
	return false
}

// GetDaemonRunner returns nil on non-Darwin platforms
func (c *Container) GetDaemonRunner() DaemonRunner {
	return nil
}
