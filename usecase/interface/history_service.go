package usecase

import (
	"context"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// CycleReporter はサイクルの結果を履歴とテレメトリに配信する
type CycleReporter interface {
	// Report は結果を記録する。失敗はログに残すだけでサイクルには影響しない
	Report(ctx context.Context, record *entity.CycleRecord)

	// Recent は新しい順に履歴を返す
	Recent(ctx context.Context, limit int) ([]*entity.CycleRecord, error)

	// Summary は since 以降の結果ごとの件数を返す
	Summary(ctx context.Context, since time.Time) (map[entity.CycleResult]int, error)
}
