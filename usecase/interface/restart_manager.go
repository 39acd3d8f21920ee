package usecase

// RestartManager はアプリケーションの再起動を管理するインターフェース
type RestartManager interface {
	// Restart は指定バージョンとして自身を再起動する。成功するのはプロセス寿命中に一度だけ
	Restart(version string) error

	// IsRestartPending は再起動が開始済みかどうかを返す
	IsRestartPending() bool

	// GetRestartReason は再起動の理由を返す
	GetRestartReason() string

	// SetRestartReason は再起動の理由を設定する
	SetRestartReason(reason string)

	// SetShutdownHandler は新プロセス起動後に呼ばれる終了処理を登録する
	SetShutdownHandler(handler func())
}
