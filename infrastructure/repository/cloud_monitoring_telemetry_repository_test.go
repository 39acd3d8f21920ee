package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricpb "google.golang.org/genproto/googleapis/api/metric"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

func TestCloudMonitoringTelemetryRepository_RecordCycle(t *testing.T) {
	var got *monitoringpb.CreateTimeSeriesRequest
	repo := newCloudMonitoringTelemetryRepository("relaunch-prod", func(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest) error {
		got = req
		return nil
	})

	finished := time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC)
	err := repo.RecordCycle(context.Background(), &entity.CycleRecord{
		StartedAt:  finished.Add(-1500 * time.Millisecond),
		FinishedAt: finished,
		Result:     entity.CycleResultCancelled,
		Outcome:    entity.DialogOutcomeCancel,
	}, repository.TimezoneInfo{Name: "Europe/Berlin"})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "projects/relaunch-prod", got.Name)
	require.Len(t, got.TimeSeries, 1)

	ts := got.TimeSeries[0]
	assert.Equal(t, cloudMonitoringMetricType, ts.Metric.Type)
	assert.Equal(t, "cancelled", ts.Metric.Labels["result"])
	assert.Equal(t, "cancel", ts.Metric.Labels["outcome"])
	assert.Equal(t, "Europe/Berlin", ts.Metric.Labels["timezone"])
	assert.Equal(t, metricpb.MetricDescriptor_GAUGE, ts.MetricKind)
	assert.Equal(t, "global", ts.Resource.Type)

	require.Len(t, ts.Points, 1)
	assert.Equal(t, finished.Unix(), ts.Points[0].Interval.EndTime.GetSeconds())
	assert.Equal(t, 1.5, ts.Points[0].Value.GetDoubleValue())
}

func TestCloudMonitoringTelemetryRepository_Errors(t *testing.T) {
	_, err := NewCloudMonitoringTelemetryRepository(context.Background(), &config.CloudMonitoringConfig{})
	assert.ErrorContains(t, err, "project id is required")

	repo := newCloudMonitoringTelemetryRepository("p", func(context.Context, *monitoringpb.CreateTimeSeriesRequest) error {
		return errors.New("PermissionDenied")
	})
	err = repo.RecordCycle(context.Background(), &entity.CycleRecord{}, repository.TimezoneInfo{})
	assert.ErrorContains(t, err, "PermissionDenied")
	assert.NoError(t, repo.Close())
}
