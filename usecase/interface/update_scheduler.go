package usecase

import (
	"context"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// UpdateScheduler は更新チェックと再起動の調整を行うループ
type UpdateScheduler interface {
	// Run はコンテキストがキャンセルされるまでサイクルを繰り返す。
	// スリープ処理自体の回復不能な失敗でのみエラーを返す
	Run(ctx context.Context) error

	// RunCycle はスリープせずに一回分のサイクルを実行する
	RunCycle(ctx context.Context) *entity.CycleRecord

	// NextDelay は現在の設定で次のチェックまでの待ち時間を計算する
	NextDelay(now time.Time) (time.Duration, error)

	// Reschedule はスリープ中の待ち時間を現在時刻から計算し直させる。
	// スリープ復帰などで時計が飛んだときに呼ぶ
	Reschedule()
}
