package usecase

import "github.com/ca-srg/relaunch/domain/entity"

// RestartGate は再起動シーケンスがプロセス全体で同時に一つしか進まないことを保証する
type RestartGate interface {
	// Activate はゲートが非アクティブな場合のみリクエストを登録して true を返す
	Activate(request entity.RestartRequest) bool

	// Deactivate は常に成功し、登録されたリクエストを破棄する
	Deactivate()

	// Active は現在のリクエストとアクティブかどうかを返す
	Active() (entity.RestartRequest, bool)
}
