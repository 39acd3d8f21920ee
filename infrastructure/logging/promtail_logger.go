package logging

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/infrastructure/config"
	"github.com/ic2hrmk/promtail"
)

// indexedLabels are promoted to Loki stream labels; all other fields go into the line.
var indexedLabels = map[string]bool{
	"result":  true,
	"state":   true,
	"outcome": true,
}

type PromtailLogger struct {
	client    promtail.Client
	component string
	fields    []domain.Field
	mu        sync.RWMutex
}

func NewPromtailLogger(cfg *config.PromtailConfig, component string) (*PromtailLogger, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("promtail url is not configured")
	}

	defaultLabels := map[string]string{
		"app":       "relaunch",
		"component": component,
	}

	batchSize := cfg.BatchCapacity
	if batchSize <= 0 {
		batchSize = 100
	}
	batchWait := time.Duration(cfg.BatchWaitSeconds) * time.Second
	if batchWait <= 0 {
		batchWait = time.Second
	}

	client, err := promtail.NewJSONv1Client(
		cfg.URL,
		defaultLabels,
		promtail.WithSendBatchSize(uint(batchSize)),
		promtail.WithSendBatchTimeout(batchWait),
		promtail.WithBasicAuth(cfg.Username, cfg.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create promtail client: %w", err)
	}

	return &PromtailLogger{
		client:    client,
		component: component,
		fields:    []domain.Field{},
	}, nil
}

func (p *PromtailLogger) Debug(ctx context.Context, msg string, fields ...domain.Field) {
	p.log(ctx, domain.LogLevelDebug, msg, fields...)
}

func (p *PromtailLogger) Info(ctx context.Context, msg string, fields ...domain.Field) {
	p.log(ctx, domain.LogLevelInfo, msg, fields...)
}

func (p *PromtailLogger) Warn(ctx context.Context, msg string, fields ...domain.Field) {
	p.log(ctx, domain.LogLevelWarn, msg, fields...)
}

func (p *PromtailLogger) Error(ctx context.Context, msg string, fields ...domain.Field) {
	p.log(ctx, domain.LogLevelError, msg, fields...)
}

func (p *PromtailLogger) WithFields(fields ...domain.Field) domain.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()

	newFields := make([]domain.Field, len(p.fields)+len(fields))
	copy(newFields, p.fields)
	copy(newFields[len(p.fields):], fields)

	return &PromtailLogger{
		client:    p.client,
		component: p.component,
		fields:    newFields,
	}
}

func (p *PromtailLogger) log(_ context.Context, level domain.LogLevel, msg string, fields ...domain.Field) {
	p.mu.RLock()
	all := make([]domain.Field, 0, len(p.fields)+len(fields))
	all = append(all, p.fields...)
	all = append(all, fields...)
	p.mu.RUnlock()

	labels, line := splitFields(level, msg, all)
	p.client.LogfWithLabels(toPromtailLevel(level), labels, "%s", line)
}

// splitFields separates low-cardinality labels from the structured line body
func splitFields(level domain.LogLevel, msg string, fields []domain.Field) (map[string]string, string) {
	labels := map[string]string{
		"level": levelToString(level),
	}

	var b strings.Builder
	b.WriteString(msg)
	for _, field := range fields {
		value := fmt.Sprintf("%v", field.Value)
		if indexedLabels[field.Key] {
			labels[field.Key] = value
			continue
		}
		fmt.Fprintf(&b, " %s=%q", field.Key, value)
	}
	return labels, b.String()
}

func toPromtailLevel(level domain.LogLevel) promtail.Level {
	switch level {
	case domain.LogLevelDebug:
		return promtail.Debug
	case domain.LogLevelInfo:
		return promtail.Info
	case domain.LogLevelWarn:
		return promtail.Warn
	case domain.LogLevelError:
		return promtail.Error
	default:
		return promtail.Info
	}
}

func (p *PromtailLogger) Shutdown() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
