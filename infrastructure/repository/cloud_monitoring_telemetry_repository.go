package repository

import (
	"context"
	"fmt"
	"os"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	monitoredrespb "google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

const cloudMonitoringMetricType = "custom.googleapis.com/relaunch/cycle_duration_seconds"

// CloudMonitoringTelemetryRepository writes cycle outcomes as custom metrics
type CloudMonitoringTelemetryRepository struct {
	projectID string
	host      string
	create    func(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error
	close     func() error
}

// NewCloudMonitoringTelemetryRepository creates a Cloud Monitoring telemetry sink
func NewCloudMonitoringTelemetryRepository(ctx context.Context, cfg *config.CloudMonitoringConfig) (*CloudMonitoringTelemetryRepository, error) {
	if cfg == nil || cfg.ProjectID == "" {
		return nil, repository.NewTelemetryRepositoryError("cloud_monitoring", "initialize", fmt.Errorf("project id is required"))
	}

	var opts []option.ClientOption
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	client, err := monitoring.NewMetricClient(ctx, opts...)
	if err != nil {
		return nil, repository.NewTelemetryRepositoryError("cloud_monitoring", "initialize", fmt.Errorf("failed to create monitoring client: %w", err))
	}

	repo := newCloudMonitoringTelemetryRepository(cfg.ProjectID,
		func(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error {
			return client.CreateTimeSeries(ctx, req)
		})
	repo.close = client.Close
	return repo, nil
}

func newCloudMonitoringTelemetryRepository(projectID string, create func(context.Context, *monitoringpb.CreateTimeSeriesRequest) error) *CloudMonitoringTelemetryRepository {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &CloudMonitoringTelemetryRepository{
		projectID: projectID,
		host:      host,
		create:    create,
		close:     func() error { return nil },
	}
}

// Name identifies the sink
func (r *CloudMonitoringTelemetryRepository) Name() string { return "cloud_monitoring" }

// RecordCycle writes one gauge point labelled with the result and outcome
func (r *CloudMonitoringTelemetryRepository) RecordCycle(ctx context.Context, record *entity.CycleRecord, timezoneInfo repository.TimezoneInfo) error {
	if err := r.create(ctx, r.buildRequest(record, timezoneInfo)); err != nil {
		return repository.NewTelemetryRepositoryError("cloud_monitoring", "create_time_series", err)
	}
	return nil
}

func (r *CloudMonitoringTelemetryRepository) buildRequest(record *entity.CycleRecord, tz repository.TimezoneInfo) *monitoringpb.CreateTimeSeriesRequest {
	return &monitoringpb.CreateTimeSeriesRequest{
		Name: "projects/" + r.projectID,
		TimeSeries: []*monitoringpb.TimeSeries{{
			Metric: &metricpb.Metric{
				Type: cloudMonitoringMetricType,
				Labels: map[string]string{
					"host":     r.host,
					"result":   string(record.Result),
					"outcome":  record.Outcome.String(),
					"timezone": tz.Name,
				},
			},
			Resource: &monitoredrespb.MonitoredResource{
				Type:   "global",
				Labels: map[string]string{"project_id": r.projectID},
			},
			MetricKind: metricpb.MetricDescriptor_GAUGE,
			ValueType:  metricpb.MetricDescriptor_DOUBLE,
			Points: []*monitoringpb.Point{{
				Interval: &monitoringpb.TimeInterval{
					EndTime: timestamppb.New(record.FinishedAt),
				},
				Value: &monitoringpb.TypedValue{
					Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: record.Duration().Seconds()},
				},
			}},
		}},
	}
}

// Close closes the monitoring client
func (r *CloudMonitoringTelemetryRepository) Close() error {
	return r.close()
}

var _ repository.TelemetryRepository = (*CloudMonitoringTelemetryRepository)(nil)
