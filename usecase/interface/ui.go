package usecase

import (
	"context"

	"github.com/ca-srg/relaunch/domain/entity"
)

// UISurface は画面上に存在するウィンドウやプロンプト
type UISurface interface {
	// SurfaceID は識別子を返す
	SurfaceID() string

	// Title は利用者に見える名前を返す
	Title() string

	// SafeToInterrupt はこのサーフェス自身を今中断してよいかを返す
	SafeToInterrupt() entity.SafetyVerdict

	// Children はこのサーフェスが所有するサーフェスを返す
	Children() []UISurface
}

// SurfaceRegistry はトップレベルのサーフェスを管理する
type SurfaceRegistry interface {
	// Register はサーフェスを登録し、登録解除関数を返す
	Register(surface UISurface) (unregister func())

	// TopLevel は登録済みのサーフェスを登録順に返す
	TopLevel() []UISurface
}

// UIDispatcher は UI スレッドで関数を実行する
type UIDispatcher interface {
	// Available は UI スレッドが起動していて操作できるかを返す
	Available() bool

	// Invoke は fn を UI スレッドで実行し、完了まで待つ
	Invoke(ctx context.Context, fn func()) error
}

// PromptPresenter は再起動確認プロンプトの表示を担う。UI スレッドから呼ばれる
type PromptPresenter interface {
	// ShowRestartPrompt はプロンプトを表示する。利用者の操作は respond で通知し、
	// 戻り値の dismiss でプロンプトを閉じる
	ShowRestartPrompt(request entity.RestartRequest, respond func(entity.DialogOutcome)) (dismiss func(), err error)
}

// Notifier は利用者への一方向の通知を表示する
type Notifier interface {
	Notify(title, message string) error
}
