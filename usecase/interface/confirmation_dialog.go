package usecase

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
)

// ConfirmationDialog は再起動の確認をユーザーに求める
type ConfirmationDialog interface {
	// Confirm はプロンプトを表示し、承認・拒否・タイムアウトのいずれかで解決するまで待つ。
	// UI が利用できない場合は表示せずに即座に DialogOutcomeCancel を返す
	Confirm(ctx context.Context, request entity.RestartRequest) entity.DialogOutcome
}
