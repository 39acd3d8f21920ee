package usecase

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

// ReconfigSession は可変な設定に対する排他的な編集セッション。
// 呼び出し側は必ず Pull → [Push] → Done の順で使い、Done は defer で呼ぶ
type ReconfigSession interface {
	// Pull は排他アクセスを取得し、現在の設定のコピーを返す。
	// エラーを返した場合もアクセスは取得済みなので Done が必要
	Pull(ctx context.Context) (*config.AppConfig, error)

	// Push はサーバー設定を候補に反映して保存し、再起動が必要かどうかを返す
	Push(ctx context.Context, candidate *config.AppConfig, authority *entity.ServerConfig) (bool, error)

	// Done は排他アクセスを解放する。二回目以降の呼び出しは何もしない
	Done()
}

// ReconfigStore は設定の編集セッションを発行する
type ReconfigStore interface {
	// Open は新しいセッションを作成する。Pull まではロックを取得しない
	Open() ReconfigSession
}
