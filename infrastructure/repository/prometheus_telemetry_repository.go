package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

const (
	metricCycleResult   = "relaunch_cycle_result"
	metricCycleDuration = "relaunch_cycle_duration_seconds"
)

// PrometheusTelemetryRepository sends cycle outcomes via Prometheus Remote Write
type PrometheusTelemetryRepository struct {
	config    *config.PrometheusConfig
	rwClient  *RemoteWriteClient
	hostLabel string
}

// NewPrometheusTelemetryRepository creates a new Prometheus telemetry sink
func NewPrometheusTelemetryRepository(cfg *config.PrometheusConfig) (*PrometheusTelemetryRepository, error) {
	if cfg == nil {
		return nil, repository.NewTelemetryRepositoryError("prometheus", "initialize", fmt.Errorf("prometheus config is nil"))
	}
	if cfg.RemoteWriteURL == "" {
		return nil, repository.NewTelemetryRepositoryError("prometheus", "initialize", fmt.Errorf("remote write url is empty"))
	}

	// Use hostname if HostLabel is not specified
	hostLabel := cfg.HostLabel
	if hostLabel == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostLabel = "unknown"
		} else {
			hostLabel = hostname
		}
	}

	var authConfig *AuthConfig
	if cfg.RemoteWriteUsername != "" && cfg.RemoteWritePassword != "" {
		authConfig = &AuthConfig{
			Username: cfg.RemoteWriteUsername,
			Password: cfg.RemoteWritePassword,
		}
	}

	rwClient, err := NewRemoteWriteClient(cfg.RemoteWriteURL, time.Duration(cfg.TimeoutSec)*time.Second, authConfig)
	if err != nil {
		return nil, repository.NewTelemetryRepositoryError("prometheus", "initialize", err)
	}

	return &PrometheusTelemetryRepository{
		config:    cfg,
		rwClient:  rwClient,
		hostLabel: hostLabel,
	}, nil
}

// Name identifies the sink
func (r *PrometheusTelemetryRepository) Name() string { return "prometheus" }

// RecordCycle sends one sample per result (1 for the cycle's result, 0 for
// the others) plus the cycle duration
func (r *PrometheusTelemetryRepository) RecordCycle(ctx context.Context, record *entity.CycleRecord, timezoneInfo repository.TimezoneInfo) error {
	if r.config.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r.config.TimeoutSec)*time.Second)
		defer cancel()
	}

	if err := r.rwClient.Send(ctx, cycleSamples(record, r.hostLabel, timezoneInfo)); err != nil {
		if ctx.Err() != nil {
			return repository.NewTelemetryRepositoryError("prometheus", "send", fmt.Errorf("timeout: %w", err))
		}
		return repository.NewTelemetryRepositoryError("prometheus", "send", err)
	}
	return nil
}

func cycleSamples(record *entity.CycleRecord, host string, tz repository.TimezoneInfo) []Sample {
	ts := record.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	millis := ts.UnixMilli()

	base := map[string]string{
		"host":     host,
		"timezone": tz.Name,
	}
	withLabels := func(extra map[string]string) map[string]string {
		out := make(map[string]string, len(base)+len(extra))
		for k, v := range base {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	samples := make([]Sample, 0, len(entity.CycleResults)+1)
	for _, result := range entity.CycleResults {
		value := 0.0
		if result == record.Result {
			value = 1
		}
		samples = append(samples, Sample{
			Name:      metricCycleResult,
			Labels:    withLabels(map[string]string{"result": string(result)}),
			Value:     value,
			Timestamp: millis,
		})
	}
	samples = append(samples, Sample{
		Name: metricCycleDuration,
		Labels: withLabels(map[string]string{
			"result":  string(record.Result),
			"outcome": record.Outcome.String(),
		}),
		Value:     record.Duration().Seconds(),
		Timestamp: millis,
	})
	return samples
}

// Close cleans up resources
func (r *PrometheusTelemetryRepository) Close() error {
	return nil
}

var _ repository.TelemetryRepository = (*PrometheusTelemetryRepository)(nil)
