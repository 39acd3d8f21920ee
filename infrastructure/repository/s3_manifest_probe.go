package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// S3ManifestProbe reads the release manifest from an S3 object
type S3ManifestProbe struct {
	client   s3iface.S3API
	bucket   string
	key      string
	channel  string
	maxBytes int
	timeout  time.Duration
	now      func() time.Time
}

var _ repository.UpdateProbe = (*S3ManifestProbe)(nil)

// NewS3ManifestProbe creates an S3 probe using the shared AWS configuration
func NewS3ManifestProbe(probeCfg *config.ProbeConfig, channel string) (*S3ManifestProbe, error) {
	if probeCfg == nil || probeCfg.S3Bucket == "" || probeCfg.S3Key == "" {
		return nil, domain.ErrInvalidInput("s3_bucket", "bucket and key are required for the s3 probe")
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           probeCfg.AWSProfile,
		SharedConfigState: session.SharedConfigEnable,
		Config:            aws.Config{Region: aws.String(probeCfg.S3Region)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	timeout := time.Duration(probeCfg.TimeoutSec) * time.Second
	return newS3ManifestProbe(s3.New(sess), probeCfg.S3Bucket, probeCfg.S3Key, channel, probeCfg.MaxManifestBytes, timeout), nil
}

func newS3ManifestProbe(client s3iface.S3API, bucket, key, channel string, maxBytes int, timeout time.Duration) *S3ManifestProbe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &S3ManifestProbe{
		client:   client,
		bucket:   bucket,
		key:      key,
		channel:  channel,
		maxBytes: maxBytes,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Source returns the manifest location as an s3:// URL
func (p *S3ManifestProbe) Source() string {
	return fmt.Sprintf("s3://%s/%s", p.bucket, p.key)
}

// Check downloads the manifest object and compares its version with currentVersion
func (p *S3ManifestProbe) Check(ctx context.Context, currentVersion string) (*entity.ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			return nil, domain.ErrProbeWithCause(p.Source(), err).WithDetails("awsCode", aerr.Code())
		}
		return nil, domain.ErrProbeWithCause(p.Source(), err)
	}
	defer func() {
		_ = out.Body.Close()
	}()

	if out.ContentLength != nil && p.maxBytes > 0 && *out.ContentLength > int64(p.maxBytes) {
		return nil, domain.ErrProbe(p.Source(), fmt.Sprintf("manifest exceeds %d bytes", p.maxBytes))
	}

	data, err := readManifest(p.Source(), out.Body, p.maxBytes)
	if err != nil {
		return nil, err
	}
	return decodeManifest(p.Source(), data, currentVersion, p.channel, p.now())
}
