package impl

import (
	"context"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// CycleReporterImpl はサイクル結果を履歴に保存し、各テレメトリへ送る
type CycleReporterImpl struct {
	history         repository.HistoryRepository
	sinks           []repository.TelemetryRepository
	timezoneService repository.TimezoneService
	retention       time.Duration
	logger          domain.Logger
	now             func() time.Time
}

// NewCycleReporter は新しい CycleReporter を作成する。history と timezoneService は nil でもよい
func NewCycleReporter(
	history repository.HistoryRepository,
	sinks []repository.TelemetryRepository,
	timezoneService repository.TimezoneService,
	retentionDays int,
	logger domain.Logger,
) *CycleReporterImpl {
	return &CycleReporterImpl{
		history:         history,
		sinks:           sinks,
		timezoneService: timezoneService,
		retention:       time.Duration(retentionDays) * 24 * time.Hour,
		logger:          logger,
		now:             time.Now,
	}
}

// Report は履歴とテレメトリに書き込む。失敗はログに残すだけ
func (r *CycleReporterImpl) Report(ctx context.Context, record *entity.CycleRecord) {
	if record == nil {
		return
	}

	if r.history != nil {
		if err := r.history.Save(ctx, record); err != nil {
			r.logger.Warn(ctx, "Failed to save cycle history",
				domain.NewField("error", err.Error()))
		} else if r.retention > 0 {
			if pruned, err := r.history.Prune(ctx, r.now().Add(-r.retention)); err != nil {
				r.logger.Warn(ctx, "Failed to prune cycle history",
					domain.NewField("error", err.Error()))
			} else if pruned > 0 {
				r.logger.Debug(ctx, "Pruned cycle history", domain.NewField("deleted", pruned))
			}
		}
	}

	tz := repository.TimezoneInfo{Name: "UTC", Offset: "+00:00", DetectionMethod: "fallback"}
	if r.timezoneService != nil {
		tz = r.timezoneService.GetTimezoneInfo()
	}
	for _, sink := range r.sinks {
		if err := sink.RecordCycle(ctx, record, tz); err != nil {
			r.logger.Warn(ctx, "Failed to send cycle telemetry",
				domain.NewField("sink", sink.Name()),
				domain.NewField("error", domain.ErrTelemetry(sink.Name(), err).Error()))
		}
	}
}

// Recent は新しい順に履歴を返す
func (r *CycleReporterImpl) Recent(ctx context.Context, limit int) ([]*entity.CycleRecord, error) {
	if r.history == nil {
		return nil, nil
	}
	records, err := r.history.Recent(ctx, limit)
	if err != nil {
		return nil, domain.ErrRepository("recent_history", err)
	}
	return records, nil
}

// Summary は since 以降の結果ごとの件数を返す。履歴がなければ空
func (r *CycleReporterImpl) Summary(ctx context.Context, since time.Time) (map[entity.CycleResult]int, error) {
	if r.history == nil {
		return map[entity.CycleResult]int{}, nil
	}
	counts, err := r.history.CountByResult(ctx, since)
	if err != nil {
		return nil, domain.ErrRepository("summarize_history", err)
	}
	return counts, nil
}

// Close は履歴とテレメトリを閉じる
func (r *CycleReporterImpl) Close() error {
	var firstErr error
	for _, sink := range r.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if r.history != nil {
		if err := r.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ usecase.CycleReporter = (*CycleReporterImpl)(nil)
