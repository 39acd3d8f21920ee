package entity

import (
	"fmt"
	"math"
	"time"
)

// Artifact is one downloadable build listed in a release manifest
type Artifact struct {
	OS     string `json:"os"`
	Arch   string `json:"arch"`
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// ServerConfig holds the settings the update server is authoritative for.
// Nil fields are left untouched when merged into local configuration.
type ServerConfig struct {
	WindowStartHour        *int    `json:"window_start_hour,omitempty"`
	WindowEndHour          *int    `json:"window_end_hour,omitempty"`
	WaitIntervalMs         *int64  `json:"wait_interval_ms,omitempty"`
	LogLevel               *string `json:"log_level,omitempty"`
	ManifestURL            *string `json:"manifest_url,omitempty"`
	PrometheusEnabled      *bool   `json:"prometheus_enabled,omitempty"`
	CloudWatchEnabled      *bool   `json:"cloudwatch_enabled,omitempty"`
	CloudMonitoringEnabled *bool   `json:"cloud_monitoring_enabled,omitempty"`
}

// Validate checks the fields that are present
func (s *ServerConfig) Validate() error {
	if s == nil {
		return nil
	}
	if s.WindowStartHour != nil && (*s.WindowStartHour < 0 || *s.WindowStartHour > 23) {
		return fmt.Errorf("window_start_hour must be between 0 and 23, got %d", *s.WindowStartHour)
	}
	if s.WindowEndHour != nil && (*s.WindowEndHour < 0 || *s.WindowEndHour > 23) {
		return fmt.Errorf("window_end_hour must be between 0 and 23, got %d", *s.WindowEndHour)
	}
	if s.WindowStartHour != nil && s.WindowEndHour != nil && *s.WindowStartHour == *s.WindowEndHour {
		return fmt.Errorf("window_start_hour and window_end_hour must differ, both are %d", *s.WindowStartHour)
	}
	if s.WaitIntervalMs != nil && (*s.WaitIntervalMs <= 0 || *s.WaitIntervalMs > math.MaxInt32) {
		return fmt.Errorf("wait_interval_ms must be in (0, %d], got %d", math.MaxInt32, *s.WaitIntervalMs)
	}
	return nil
}

// ProbeResult is what one update check found
type ProbeResult struct {
	NewVersionFound bool
	Version         string
	Channel         string
	Artifacts       []Artifact
	CheckedAt       time.Time

	// ServerConfig is nil when the server sent no configuration.
	ServerConfig *ServerConfig
	// ServerConfigErr is set when the server configuration could not be
	// read. The version check result is still valid.
	ServerConfigErr error
}

// ArtifactFor returns the artifact matching the platform, if any
func (p *ProbeResult) ArtifactFor(goos, goarch string) (Artifact, bool) {
	for _, a := range p.Artifacts {
		if a.OS == goos && a.Arch == goarch {
			return a, true
		}
	}
	return Artifact{}, false
}
