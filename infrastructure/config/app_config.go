package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"time"

	"github.com/Netflix/go-env"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/valueobject"
)

// CurrentVersion is the configuration schema version written by this build
const CurrentVersion = 2

// Probe sources
const (
	ProbeSourceHTTP = "http"
	ProbeSourceS3   = "s3"
)

// UpdateConfig holds the restart window and prompt settings.
// Fields tagged reload:"live" are re-read every cycle; every other field
// in AppConfig is read once at startup.
type UpdateConfig struct {
	// WindowStartHour is the first hour of the daily restart window (0-23)
	WindowStartHour int `json:"window_start_hour" env:"RELAUNCH_WINDOW_START_HOUR" reload:"live"`

	// WindowEndHour is the hour the restart window closes (0-23)
	WindowEndHour int `json:"window_end_hour" env:"RELAUNCH_WINDOW_END_HOUR" reload:"live"`

	// WaitIntervalMs is how long the restart prompt waits before an implicit accept
	WaitIntervalMs int `json:"wait_interval_ms" env:"RELAUNCH_WAIT_INTERVAL_MS" reload:"live"`

	// CurrentVersion overrides the version compiled into the binary
	CurrentVersion string `json:"current_version,omitempty" env:"RELAUNCH_CURRENT_VERSION" reload:"live"`

	// Channel is the release channel to follow
	Channel string `json:"channel,omitempty" env:"RELAUNCH_CHANNEL" reload:"live"`

	// ProbeSource selects the manifest source: http or s3
	ProbeSource string `json:"probe_source,omitempty" env:"RELAUNCH_PROBE_SOURCE"`

	// Timezone is the IANA zone the window hours are interpreted in (empty: system)
	Timezone string `json:"timezone,omitempty" env:"RELAUNCH_TIMEZONE"`
}

// ProbeConfig holds the manifest source settings
type ProbeConfig struct {
	// ManifestURL is the HTTP(S) location of the release manifest
	ManifestURL string `json:"manifest_url,omitempty" env:"RELAUNCH_MANIFEST_URL"`

	// TimeoutSec is the timeout for a single manifest fetch
	TimeoutSec int `json:"timeout_seconds,omitempty" env:"RELAUNCH_PROBE_TIMEOUT_SECONDS"`

	// MaxManifestBytes caps the manifest body size
	MaxManifestBytes int `json:"max_manifest_bytes,omitempty" env:"RELAUNCH_PROBE_MAX_MANIFEST_BYTES"`

	// GoogleAuth authenticates manifest fetches with Google credentials. Without a key
	// path or key JSON, application default credentials are used
	GoogleAuth bool `json:"google_auth,omitempty" env:"RELAUNCH_PROBE_GOOGLE_AUTH"`

	// GoogleCredentialsPath is a service account key used to authenticate manifest fetches (optional)
	GoogleCredentialsPath string `json:"google_credentials_path,omitempty" env:"RELAUNCH_GOOGLE_CREDENTIALS_PATH"`

	// GoogleCredentialsJSON is the service account key content, base64 encoded in the environment (optional)
	GoogleCredentialsJSON string `json:"google_credentials_json,omitempty" env:"RELAUNCH_GOOGLE_CREDENTIALS_JSON"`

	// S3Bucket is the bucket holding the manifest
	S3Bucket string `json:"s3_bucket,omitempty" env:"RELAUNCH_S3_BUCKET"`

	// S3Key is the manifest object key
	S3Key string `json:"s3_key,omitempty" env:"RELAUNCH_S3_KEY"`

	// S3Region is the bucket region
	S3Region string `json:"s3_region,omitempty" env:"RELAUNCH_S3_REGION"`

	// AWSProfile is the shared credentials profile to use (optional)
	AWSProfile string `json:"aws_profile,omitempty" env:"RELAUNCH_AWS_PROFILE"`
}

// PrometheusConfig holds Prometheus remote write settings for cycle telemetry
type PrometheusConfig struct {
	// Enabled allows the server to switch the sink off
	Enabled bool `json:"enabled" env:"RELAUNCH_PROMETHEUS_ENABLED"`

	// RemoteWriteURL is the Prometheus Remote Write endpoint URL
	RemoteWriteURL string `json:"remote_write_url,omitempty" env:"RELAUNCH_PROMETHEUS_REMOTE_WRITE_URL"`

	// RemoteWriteUsername is the username for Remote Write authentication
	RemoteWriteUsername string `json:"remote_write_username,omitempty" env:"RELAUNCH_PROMETHEUS_REMOTE_WRITE_USERNAME"`

	// RemoteWritePassword is the password for Remote Write authentication
	RemoteWritePassword string `json:"remote_write_password,omitempty" env:"RELAUNCH_PROMETHEUS_REMOTE_WRITE_PASSWORD"`

	// HostLabel is the host label value for metrics
	HostLabel string `json:"host_label,omitempty" env:"RELAUNCH_PROMETHEUS_HOST_LABEL"`

	// TimeoutSec is the timeout in seconds for a push
	TimeoutSec int `json:"timeout_seconds,omitempty" env:"RELAUNCH_PROMETHEUS_TIMEOUT_SECONDS"`
}

// CloudWatchConfig holds CloudWatch PutMetricData settings
type CloudWatchConfig struct {
	Enabled    bool   `json:"enabled" env:"RELAUNCH_CLOUDWATCH_ENABLED"`
	Region     string `json:"region,omitempty" env:"RELAUNCH_CLOUDWATCH_REGION"`
	Namespace  string `json:"namespace,omitempty" env:"RELAUNCH_CLOUDWATCH_NAMESPACE"`
	AWSProfile string `json:"aws_profile,omitempty" env:"RELAUNCH_CLOUDWATCH_AWS_PROFILE"`
}

// CloudMonitoringConfig holds Google Cloud Monitoring settings
type CloudMonitoringConfig struct {
	Enabled         bool   `json:"enabled" env:"RELAUNCH_CLOUD_MONITORING_ENABLED"`
	ProjectID       string `json:"project_id,omitempty" env:"RELAUNCH_CLOUD_MONITORING_PROJECT_ID"`
	CredentialsPath string `json:"credentials_path,omitempty" env:"RELAUNCH_CLOUD_MONITORING_CREDENTIALS_PATH"`
}

// TelemetryConfig groups the cycle outcome sinks
type TelemetryConfig struct {
	Prometheus      *PrometheusConfig      `json:"prometheus,omitempty"`
	CloudWatch      *CloudWatchConfig      `json:"cloudwatch,omitempty"`
	CloudMonitoring *CloudMonitoringConfig `json:"cloud_monitoring,omitempty"`
}

// HistoryConfig holds the cycle history store settings
type HistoryConfig struct {
	// Path is the SQLite database file
	Path string `json:"path,omitempty" env:"RELAUNCH_HISTORY_PATH"`

	// RetentionDays prunes older records; 0 keeps everything
	RetentionDays int `json:"retention_days,omitempty" env:"RELAUNCH_HISTORY_RETENTION_DAYS"`
}

// DaemonConfig holds daemon mode configuration
type DaemonConfig struct {
	// Enabled indicates whether daemon mode is enabled
	Enabled bool `json:"enabled,omitempty" env:"RELAUNCH_DAEMON_ENABLED"`

	// LogPath is the path for daemon log files
	LogPath string `json:"log_path,omitempty" env:"RELAUNCH_DAEMON_LOG_PATH"`

	// PidFile is the path for the daemon PID file
	PidFile string `json:"pid_file,omitempty" env:"RELAUNCH_DAEMON_PID_FILE"`

	// HideFromDock keeps the menu bar app out of the macOS Dock
	HideFromDock bool `json:"hide_from_dock,omitempty" env:"RELAUNCH_DAEMON_HIDE_FROM_DOCK"`
}

// PromtailConfig holds Promtail logging configuration
type PromtailConfig struct {
	// URL is the Promtail push endpoint URL
	URL string `json:"url" env:"RELAUNCH_LOKI_URL"`

	// Username is the username for basic authentication
	Username string `json:"username" env:"RELAUNCH_LOKI_USERNAME"`

	// Password is the password for basic authentication
	Password string `json:"password" env:"RELAUNCH_LOKI_PASSWORD"`

	// BatchWaitSeconds is the time to wait before sending a batch
	BatchWaitSeconds int `json:"batch_wait_seconds,omitempty" env:"RELAUNCH_LOKI_BATCH_WAIT_SECONDS"`

	// BatchCapacity is the maximum number of log entries in a batch
	BatchCapacity int `json:"batch_capacity,omitempty" env:"RELAUNCH_LOKI_BATCH_CAPACITY"`

	// TimeoutSeconds is the timeout for sending logs
	TimeoutSeconds int `json:"timeout_seconds,omitempty" env:"RELAUNCH_LOKI_TIMEOUT_SECONDS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" env:"RELAUNCH_LOG_LEVEL"`

	// Debug enables debug mode with stdout logging
	Debug bool `json:"debug,omitempty" env:"RELAUNCH_LOG_DEBUG"`

	// Promtail holds Promtail configuration
	Promtail *PromtailConfig `json:"promtail,omitempty"`
}

// ConfigSource represents the source of a configuration value
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceJSONFile    ConfigSource = "json"
	SourceEnvironment ConfigSource = "env"
	SourceServer      ConfigSource = "server"
)

// ConfigSourceMap tracks the source of each configuration field
type ConfigSourceMap map[string]ConfigSource

// AppConfig holds application configuration
type AppConfig struct {
	// Version is the configuration schema version
	Version int `json:"version,omitempty" config:"-"`

	Update    *UpdateConfig    `json:"update,omitempty"`
	Probe     *ProbeConfig     `json:"probe,omitempty"`
	Telemetry *TelemetryConfig `json:"telemetry,omitempty"`
	History   *HistoryConfig   `json:"history,omitempty"`
	Daemon    *DaemonConfig    `json:"daemon,omitempty"`
	Logging   *LoggingConfig   `json:"logging,omitempty"`

	// LegacyRestartHour is the schema v1 single restart hour
	LegacyRestartHour *int `json:"restart_hour,omitempty" config:"-"`

	// LegacyWaitSeconds is the schema v1 prompt wait in seconds
	LegacyWaitSeconds *int `json:"wait_seconds,omitempty" config:"-"`

	// ConfigSources tracks the source of each configuration field
	ConfigSources ConfigSourceMap `json:"-" config:"-"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Version: CurrentVersion,
		Update: &UpdateConfig{
			WindowStartHour: 2,
			WindowEndHour:   5,
			WaitIntervalMs:  5 * 60 * 1000,
			Channel:         "stable",
			ProbeSource:     ProbeSourceHTTP,
		},
		Probe: &ProbeConfig{
			TimeoutSec:       30,
			MaxManifestBytes: 1 << 20,
			S3Region:         "us-east-1",
		},
		Telemetry: &TelemetryConfig{
			Prometheus: &PrometheusConfig{
				Enabled:    true,
				TimeoutSec: 30,
			},
			CloudWatch: &CloudWatchConfig{
				Region:    "us-east-1",
				Namespace: "Relaunch",
			},
			CloudMonitoring: &CloudMonitoringConfig{},
		},
		History: &HistoryConfig{
			Path:          defaultHistoryPath(),
			RetentionDays: 90,
		},
		Daemon: &DaemonConfig{
			LogPath:      "/tmp/relaunch.log",
			PidFile:      "/tmp/relaunch.pid",
			HideFromDock: true,
		},
		Logging: &LoggingConfig{
			Level: "info",
			Promtail: &PromtailConfig{
				URL:              "http://localhost:3100/loki/api/v1/push",
				BatchWaitSeconds: 1,
				BatchCapacity:    100,
				TimeoutSeconds:   5,
			},
		},
		ConfigSources: make(ConfigSourceMap),
	}
}

// MinimalDefaultConfig returns the template written on first start
func MinimalDefaultConfig() *AppConfig {
	cfg := DefaultConfig()
	cfg.Telemetry = nil
	cfg.History = nil
	cfg.Daemon = nil
	cfg.Logging.Promtail.URL = ""
	return cfg
}

func defaultHistoryPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "relaunch-history.db"
	}
	return filepath.Join(homeDir, ".config", "relaunch", "history.db")
}

// DecodeJSON decodes a configuration file on top of the defaults, so keys
// missing from the file keep their default values. Every key present in
// the file is recorded as coming from JSON. A file without a version key
// is reported as version 0.
func DecodeJSON(data []byte) (*AppConfig, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig()
	cfg.MarkDefaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}
	if _, ok := raw["version"]; !ok {
		cfg.Version = 0
	}

	if err := markJSONSources("", reflect.ValueOf(cfg).Elem(), raw, cfg.ConfigSources); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from defaults and environment variables
func LoadConfig() (*AppConfig, error) {
	cfg := DefaultConfig()
	cfg.MarkDefaults()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv overlays RELAUNCH_* environment variables using Netflix/go-env
func (c *AppConfig) LoadFromEnv() error {
	if c.ConfigSources == nil {
		c.ConfigSources = make(ConfigSourceMap)
	}

	err := walkSections(reflect.ValueOf(c).Elem(), func(section interface{}) error {
		if _, err := env.UnmarshalFromEnviron(section); err != nil {
			return fmt.Errorf("failed to unmarshal environment variables into %T: %w", section, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The service account key travels base64 encoded in the environment
	if encoded := os.Getenv("RELAUNCH_GOOGLE_CREDENTIALS_JSON"); encoded != "" && c.Probe != nil {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("failed to decode base64 google credentials: %w", err)
		}
		c.Probe.GoogleCredentialsJSON = string(decoded)
	}

	walkLeaves("", reflect.ValueOf(c).Elem(), func(path string, field reflect.StructField, _ reflect.Value) {
		name := envName(field)
		if name != "" && os.Getenv(name) != "" {
			c.ConfigSources[path] = SourceEnvironment
		}
	})
	return nil
}

// MarkDefaults marks all configuration fields as coming from defaults
func (c *AppConfig) MarkDefaults() {
	if c.ConfigSources == nil {
		c.ConfigSources = make(ConfigSourceMap)
	}
	c.ConfigSources["Version"] = SourceDefault
	walkLeaves("", reflect.ValueOf(c).Elem(), func(path string, _ reflect.StructField, _ reflect.Value) {
		c.ConfigSources[path] = SourceDefault
	})
}

// Validate validates the configuration
func (c *AppConfig) Validate() error {
	if c.Update != nil {
		if err := c.validateUpdate(); err != nil {
			return err
		}
	}
	if c.Probe != nil {
		if err := c.validateProbe(); err != nil {
			return err
		}
	}
	if c.Telemetry != nil {
		if err := c.validateTelemetry(); err != nil {
			return err
		}
	}
	if c.History != nil && c.History.RetentionDays < 0 {
		return fmt.Errorf("history retention days cannot be negative")
	}
	if c.Daemon != nil {
		if err := c.validateDaemon(); err != nil {
			return err
		}
	}
	if c.Logging != nil {
		if err := c.validateLogging(); err != nil {
			return err
		}
	}
	return nil
}

// validateUpdate validates the restart window and prompt settings
func (c *AppConfig) validateUpdate() error {
	u := c.Update
	if _, err := valueobject.NewWindowSpec(u.WindowStartHour, u.WindowEndHour); err != nil {
		return fmt.Errorf("invalid restart window: %w", err)
	}
	if u.WaitIntervalMs <= 0 || int64(u.WaitIntervalMs) > math.MaxInt32 {
		return fmt.Errorf("wait interval must be between 1 and %d milliseconds, got %d", math.MaxInt32, u.WaitIntervalMs)
	}
	if u.ProbeSource != "" && u.ProbeSource != ProbeSourceHTTP && u.ProbeSource != ProbeSourceS3 {
		return fmt.Errorf("invalid probe source: %s (must be http or s3)", u.ProbeSource)
	}
	if u.Timezone != "" {
		if _, err := time.LoadLocation(u.Timezone); err != nil {
			return fmt.Errorf("update timezone is invalid: %w", err)
		}
	}
	return nil
}

// validateProbe validates the manifest source settings
func (c *AppConfig) validateProbe() error {
	p := c.Probe
	if p.TimeoutSec < 1 {
		return fmt.Errorf("probe timeout must be at least 1 second")
	}
	if p.MaxManifestBytes < 1024 {
		return fmt.Errorf("probe max manifest bytes must be at least 1024")
	}
	if c.Update != nil && c.Update.ProbeSource == ProbeSourceS3 && (p.S3Bucket == "" || p.S3Key == "") {
		return fmt.Errorf("s3 bucket and key are required when probe source is s3")
	}
	if p.GoogleCredentialsJSON != "" {
		var keyData map[string]interface{}
		if err := json.Unmarshal([]byte(p.GoogleCredentialsJSON), &keyData); err != nil {
			return fmt.Errorf("invalid google credentials JSON: %w", err)
		}
		if keyType, ok := keyData["type"].(string); !ok || keyType != "service_account" {
			return fmt.Errorf("google credentials must have type 'service_account'")
		}
	}
	return nil
}

// validateTelemetry validates the sink settings
func (c *AppConfig) validateTelemetry() error {
	t := c.Telemetry
	if p := t.Prometheus; p != nil && p.RemoteWriteURL != "" {
		if p.TimeoutSec < 1 {
			return fmt.Errorf("prometheus timeout must be at least 1 second")
		}
		if p.RemoteWriteUsername == "" || p.RemoteWritePassword == "" {
			return fmt.Errorf("remote write username and password are required when remote write URL is set")
		}
	}
	if cw := t.CloudWatch; cw != nil && cw.Enabled {
		if cw.Region == "" || cw.Namespace == "" {
			return fmt.Errorf("cloudwatch region and namespace are required when cloudwatch is enabled")
		}
	}
	if cm := t.CloudMonitoring; cm != nil && cm.Enabled && cm.ProjectID == "" {
		return fmt.Errorf("cloud monitoring project ID cannot be empty when cloud monitoring is enabled")
	}
	return nil
}

// validateDaemon validates Daemon configuration
func (c *AppConfig) validateDaemon() error {
	if c.Daemon.Enabled && c.Daemon.LogPath == "" {
		return fmt.Errorf("daemon log path cannot be empty when daemon is enabled")
	}
	if c.Daemon.Enabled && c.Daemon.PidFile == "" {
		return fmt.Errorf("daemon PID file path cannot be empty when daemon is enabled")
	}
	return nil
}

// validateLogging validates Logging configuration
func (c *AppConfig) validateLogging() error {
	if c.Logging.Level != "" {
		validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
		if !validLevels[c.Logging.Level] {
			return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
		}
	}

	// An empty Promtail URL means remote logging is off
	if p := c.Logging.Promtail; p != nil && p.URL != "" {
		if p.BatchWaitSeconds < 1 {
			return fmt.Errorf("promtail batch wait must be at least 1 second")
		}
		if p.BatchCapacity < 1 {
			return fmt.Errorf("promtail batch capacity must be at least 1")
		}
		if p.TimeoutSeconds < 1 {
			return fmt.Errorf("promtail timeout must be at least 1 second")
		}
	}
	return nil
}

// Window returns the configured restart window
func (c *AppConfig) Window() (valueobject.WindowSpec, error) {
	if c.Update == nil {
		return valueobject.WindowSpec{}, fmt.Errorf("update section is missing")
	}
	return valueobject.NewWindowSpec(c.Update.WindowStartHour, c.Update.WindowEndHour)
}

// WaitInterval returns the prompt wait as a duration
func (c *AppConfig) WaitInterval() time.Duration {
	if c.Update == nil {
		return 0
	}
	return time.Duration(c.Update.WaitIntervalMs) * time.Millisecond
}

// ApplyServerConfig merges the fields the server is authoritative for.
// The result is not validated here.
func (c *AppConfig) ApplyServerConfig(sc *entity.ServerConfig) {
	if sc == nil {
		return
	}
	if c.ConfigSources == nil {
		c.ConfigSources = make(ConfigSourceMap)
	}
	if c.Update == nil {
		c.Update = DefaultConfig().Update
	}
	set := func(path string) { c.ConfigSources[path] = SourceServer }

	if sc.WindowStartHour != nil {
		c.Update.WindowStartHour = *sc.WindowStartHour
		set("Update.WindowStartHour")
	}
	if sc.WindowEndHour != nil {
		c.Update.WindowEndHour = *sc.WindowEndHour
		set("Update.WindowEndHour")
	}
	if sc.WaitIntervalMs != nil {
		c.Update.WaitIntervalMs = int(*sc.WaitIntervalMs)
		set("Update.WaitIntervalMs")
	}
	if sc.LogLevel != nil {
		if c.Logging == nil {
			c.Logging = &LoggingConfig{}
		}
		c.Logging.Level = *sc.LogLevel
		set("Logging.Level")
	}
	if sc.ManifestURL != nil {
		if c.Probe == nil {
			c.Probe = DefaultConfig().Probe
		}
		c.Probe.ManifestURL = *sc.ManifestURL
		set("Probe.ManifestURL")
	}
	if sc.PrometheusEnabled != nil || sc.CloudWatchEnabled != nil || sc.CloudMonitoringEnabled != nil {
		if c.Telemetry == nil {
			c.Telemetry = DefaultConfig().Telemetry
		}
	}
	if sc.PrometheusEnabled != nil && c.Telemetry.Prometheus != nil {
		c.Telemetry.Prometheus.Enabled = *sc.PrometheusEnabled
		set("Telemetry.Prometheus.Enabled")
	}
	if sc.CloudWatchEnabled != nil && c.Telemetry.CloudWatch != nil {
		c.Telemetry.CloudWatch.Enabled = *sc.CloudWatchEnabled
		set("Telemetry.CloudWatch.Enabled")
	}
	if sc.CloudMonitoringEnabled != nil && c.Telemetry.CloudMonitoring != nil {
		c.Telemetry.CloudMonitoring.Enabled = *sc.CloudMonitoringEnabled
		set("Telemetry.CloudMonitoring.Enabled")
	}
}

// RestartRequiredChanges lists the fields that differ between c and other
// and are only read at startup
func (c *AppConfig) RestartRequiredChanges(other *AppConfig) []string {
	mine := startupValues(c)
	theirs := startupValues(other)

	var changed []string
	for path, v := range mine {
		if w, ok := theirs[path]; !ok || !reflect.DeepEqual(v, w) {
			changed = append(changed, path)
		}
	}
	for path := range theirs {
		if _, ok := mine[path]; !ok {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed
}

func startupValues(c *AppConfig) map[string]interface{} {
	out := make(map[string]interface{})
	if c == nil {
		return out
	}
	walkLeaves("", reflect.ValueOf(c).Elem(), func(path string, field reflect.StructField, v reflect.Value) {
		if field.Tag.Get("reload") == "live" {
			return
		}
		out[path] = v.Interface()
	})
	return out
}

// Clone returns a deep copy
func (c *AppConfig) Clone() *AppConfig {
	if c == nil {
		return nil
	}
	dst := *c
	if c.Update != nil {
		u := *c.Update
		dst.Update = &u
	}
	if c.Probe != nil {
		p := *c.Probe
		dst.Probe = &p
	}
	if c.Telemetry != nil {
		t := TelemetryConfig{}
		if c.Telemetry.Prometheus != nil {
			p := *c.Telemetry.Prometheus
			t.Prometheus = &p
		}
		if c.Telemetry.CloudWatch != nil {
			cw := *c.Telemetry.CloudWatch
			t.CloudWatch = &cw
		}
		if c.Telemetry.CloudMonitoring != nil {
			cm := *c.Telemetry.CloudMonitoring
			t.CloudMonitoring = &cm
		}
		dst.Telemetry = &t
	}
	if c.History != nil {
		h := *c.History
		dst.History = &h
	}
	if c.Daemon != nil {
		d := *c.Daemon
		dst.Daemon = &d
	}
	if c.Logging != nil {
		l := *c.Logging
		if c.Logging.Promtail != nil {
			p := *c.Logging.Promtail
			l.Promtail = &p
		}
		dst.Logging = &l
	}
	if c.LegacyRestartHour != nil {
		h := *c.LegacyRestartHour
		dst.LegacyRestartHour = &h
	}
	if c.LegacyWaitSeconds != nil {
		s := *c.LegacyWaitSeconds
		dst.LegacyWaitSeconds = &s
	}
	dst.ConfigSources = make(ConfigSourceMap, len(c.ConfigSources))
	for k, v := range c.ConfigSources {
		dst.ConfigSources[k] = v
	}
	return &dst
}
