package impl

import (
	"context"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/infrastructure/clock"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// dismissTimeout は結果確定後にプロンプトを閉じる UI 呼び出しの上限
const dismissTimeout = 5 * time.Second

// ConfirmationDialogImpl は ConfirmationDialog の実装。
// 利用者の承認・拒否とタイマーが一つのラッチを奪い合う
type ConfirmationDialogImpl struct {
	dispatcher usecase.UIDispatcher
	presenter  usecase.PromptPresenter
	registry   usecase.SurfaceRegistry
	clock      clock.Clock
	logger     domain.Logger
}

// NewConfirmationDialog は新しい ConfirmationDialog を作成する
func NewConfirmationDialog(
	dispatcher usecase.UIDispatcher,
	presenter usecase.PromptPresenter,
	registry usecase.SurfaceRegistry,
	clk clock.Clock,
	logger domain.Logger,
) *ConfirmationDialogImpl {
	return &ConfirmationDialogImpl{
		dispatcher: dispatcher,
		presenter:  presenter,
		registry:   registry,
		clock:      clk,
		logger:     logger,
	}
}

// Confirm はプロンプトを UI スレッドで表示し、結果が確定するまで呼び出し元を待たせる
func (d *ConfirmationDialogImpl) Confirm(ctx context.Context, request entity.RestartRequest) entity.DialogOutcome {
	if d.dispatcher == nil || d.presenter == nil || !d.dispatcher.Available() {
		d.logger.Info(ctx, "No user interface available, restart prompt cancelled",
			domain.NewField("version", request.Version()))
		return entity.DialogOutcomeCancel
	}

	latch := newOutcomeLatch()
	surface := newRestartPromptSurface(request, latch)

	onTimeout := func() { latch.Finish(entity.DialogOutcomeTimeout) }

	var (
		dismiss    func()
		unregister func()
		timer      clock.Timer
		showErr    error
	)
	err := d.dispatcher.Invoke(ctx, func() {
		if d.registry != nil {
			unregister = d.registry.Register(surface)
		}
		dismiss, showErr = d.presenter.ShowRestartPrompt(request, func(outcome entity.DialogOutcome) {
			latch.Finish(outcome)
		})
		// 待ち時間はプロンプトが実際に表示された時点から数える
		if showErr == nil {
			timer = d.clock.AfterFunc(request.WaitInterval(), onTimeout)
		}
	})
	if err == nil {
		err = showErr
	}
	if err != nil {
		d.logger.Warn(ctx, "Failed to show restart prompt, treating as cancel",
			domain.NewField("version", request.Version()),
			domain.NewField("error", err.Error()))
		latch.Finish(entity.DialogOutcomeCancel)
	} else {
		d.logger.Info(ctx, "Restart prompt shown",
			domain.NewField("version", request.Version()),
			domain.NewField("wait_interval", request.WaitInterval().String()))

		select {
		case <-latch.Done():
		case <-ctx.Done():
			latch.Finish(entity.DialogOutcomeCancel)
		}
	}

	if timer != nil {
		timer.Stop()
	}
	outcome := latch.Outcome()
	d.close(ctx, dismiss, unregister)

	if outcome == entity.DialogOutcomeTimeout {
		d.logger.Info(ctx, "Restart prompt timed out",
			domain.NewField("version", request.Version()),
			domain.NewField("wait_interval", request.WaitInterval().String()))
	}

	d.logger.Info(ctx, "Restart prompt resolved",
		domain.NewField("version", request.Version()),
		domain.NewField("outcome", outcome.String()))
	return outcome
}

// close はプロンプトを UI スレッドで閉じる。UI が止まっていれば登録だけ外す
func (d *ConfirmationDialogImpl) close(ctx context.Context, dismiss, unregister func()) {
	if dismiss == nil && unregister == nil {
		return
	}
	cleanup := func() {
		if dismiss != nil {
			dismiss()
		}
		if unregister != nil {
			unregister()
		}
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dismissTimeout)
	defer cancel()
	if err := d.dispatcher.Invoke(closeCtx, cleanup); err != nil {
		d.logger.Debug(ctx, "Could not dismiss restart prompt on the UI thread",
			domain.NewField("error", err.Error()))
		if unregister != nil {
			unregister()
		}
	}
}

var _ usecase.ConfirmationDialog = (*ConfirmationDialogImpl)(nil)
