package repository

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// CloudWatchTelemetryRepository publishes cycle outcomes with PutMetricData
type CloudWatchTelemetryRepository struct {
	client    cloudwatchiface.CloudWatchAPI
	namespace string
	host      string
}

// NewCloudWatchTelemetryRepository creates a CloudWatch telemetry sink
func NewCloudWatchTelemetryRepository(cfg *config.CloudWatchConfig) (*CloudWatchTelemetryRepository, error) {
	if cfg == nil {
		return nil, repository.NewTelemetryRepositoryError("cloudwatch", "initialize", fmt.Errorf("cloudwatch config is nil"))
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           cfg.AWSProfile,
		SharedConfigState: session.SharedConfigEnable,
		Config:            aws.Config{Region: aws.String(cfg.Region)},
	})
	if err != nil {
		return nil, repository.NewTelemetryRepositoryError("cloudwatch", "initialize", fmt.Errorf("failed to create AWS session: %w", err))
	}

	return newCloudWatchTelemetryRepository(cloudwatch.New(sess), cfg.Namespace), nil
}

func newCloudWatchTelemetryRepository(client cloudwatchiface.CloudWatchAPI, namespace string) *CloudWatchTelemetryRepository {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	if namespace == "" {
		namespace = "Relaunch"
	}
	return &CloudWatchTelemetryRepository{client: client, namespace: namespace, host: host}
}

// Name identifies the sink
func (r *CloudWatchTelemetryRepository) Name() string { return "cloudwatch" }

// RecordCycle publishes a count for the result and the cycle duration
func (r *CloudWatchTelemetryRepository) RecordCycle(ctx context.Context, record *entity.CycleRecord, timezoneInfo repository.TimezoneInfo) error {
	dimensions := []*cloudwatch.Dimension{
		{Name: aws.String("Host"), Value: aws.String(r.host)},
		{Name: aws.String("Result"), Value: aws.String(string(record.Result))},
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String("CycleCount"),
				Dimensions: dimensions,
				Timestamp:  aws.Time(record.FinishedAt),
				Unit:       aws.String(cloudwatch.StandardUnitCount),
				Value:      aws.Float64(1),
			},
			{
				MetricName: aws.String("CycleDuration"),
				Dimensions: append(dimensions, &cloudwatch.Dimension{
					Name:  aws.String("Outcome"),
					Value: aws.String(record.Outcome.String()),
				}),
				Timestamp: aws.Time(record.FinishedAt),
				Unit:      aws.String(cloudwatch.StandardUnitSeconds),
				Value:     aws.Float64(record.Duration().Seconds()),
			},
		},
	}

	if _, err := r.client.PutMetricDataWithContext(ctx, input); err != nil {
		return repository.NewTelemetryRepositoryError("cloudwatch", "put_metric_data", err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources
func (r *CloudWatchTelemetryRepository) Close() error {
	return nil
}

var _ repository.TelemetryRepository = (*CloudWatchTelemetryRepository)(nil)
