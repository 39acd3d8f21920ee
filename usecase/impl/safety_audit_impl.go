package impl

import (
	"context"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// SafetyAuditImpl は ShutdownSafetyAudit の実装
type SafetyAuditImpl struct {
	registry   usecase.SurfaceRegistry
	dispatcher usecase.UIDispatcher
	logger     domain.Logger
}

// NewSafetyAudit は新しい ShutdownSafetyAudit を作成する
func NewSafetyAudit(registry usecase.SurfaceRegistry, dispatcher usecase.UIDispatcher, logger domain.Logger) *SafetyAuditImpl {
	return &SafetyAuditImpl{
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Check は生きているサーフェスを毎回すべて走査する
func (a *SafetyAuditImpl) Check(ctx context.Context) entity.SafetyVerdict {
	// UI スレッドが無ければ UI 状態を変更する者もいないので、その場で走査する
	if a.dispatcher == nil || !a.dispatcher.Available() {
		return a.walkAll(ctx)
	}

	verdict := entity.Unsafe("safety audit did not complete")
	if err := a.dispatcher.Invoke(ctx, func() {
		verdict = a.walkAll(ctx)
	}); err != nil {
		a.logger.Warn(ctx, "Safety audit could not run on the UI thread",
			domain.NewField("error", err.Error()))
		return entity.Unsafe("the user interface did not respond to the safety audit")
	}
	return verdict
}

func (a *SafetyAuditImpl) walkAll(ctx context.Context) entity.SafetyVerdict {
	visited := make(map[string]bool)
	for _, surface := range a.registry.TopLevel() {
		if verdict, offender := walkSurface(surface, visited); !verdict.IsSafe() {
			a.logger.Info(ctx, "Safety audit found work in progress",
				domain.NewField("surface_id", offender.SurfaceID()),
				domain.NewField("surface", offender.Title()),
				domain.NewField("reason", verdict.Reason()))
			return verdict
		}
	}
	return entity.Safe()
}

// walkSurface は深さ優先で最初に見つかった中断できないサーフェスを返す
func walkSurface(surface usecase.UISurface, visited map[string]bool) (entity.SafetyVerdict, usecase.UISurface) {
	if surface == nil || visited[surface.SurfaceID()] {
		return entity.Safe(), nil
	}
	visited[surface.SurfaceID()] = true

	if verdict := surface.SafeToInterrupt(); !verdict.IsSafe() {
		return verdict, surface
	}
	for _, child := range surface.Children() {
		if verdict, offender := walkSurface(child, visited); !verdict.IsSafe() {
			return verdict, offender
		}
	}
	return entity.Safe(), nil
}

var _ usecase.ShutdownSafetyAudit = (*SafetyAuditImpl)(nil)
