package impl

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/infrastructure/config"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// ReconfigStoreImpl は設定サービスの上に排他的な編集セッションを提供する
type ReconfigStoreImpl struct {
	configService usecase.ConfigService
	logger        domain.Logger

	// 容量 1 のセマフォ。Pull で取得し Done で解放する
	sem chan struct{}
}

// NewReconfigStore は新しい ReconfigStore を作成する
func NewReconfigStore(configService usecase.ConfigService, logger domain.Logger) *ReconfigStoreImpl {
	return &ReconfigStoreImpl{
		configService: configService,
		logger:        logger,
		sem:           make(chan struct{}, 1),
	}
}

// Open は新しいセッションを作成する
func (s *ReconfigStoreImpl) Open() usecase.ReconfigSession {
	return &reconfigSession{store: s}
}

// reconfigSession は一回分の Pull/Push/Done
type reconfigSession struct {
	store *ReconfigStoreImpl

	mu       sync.Mutex
	held     bool
	released bool
}

// Pull は排他アクセスを取得し、最新の設定を読み直して返す
func (r *reconfigSession) Pull(ctx context.Context) (*config.AppConfig, error) {
	r.mu.Lock()
	if r.held || r.released {
		r.mu.Unlock()
		return nil, domain.ErrInvalidState("reconfig session", "used", "pull")
	}
	r.mu.Unlock()

	select {
	case r.store.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, domain.ErrReconfig("pull", ctx.Err())
	}

	r.mu.Lock()
	r.held = true
	r.mu.Unlock()

	if err := r.store.configService.ReloadConfig(); err != nil {
		return nil, domain.ErrReconfig("pull", err)
	}
	return r.store.configService.GetConfig(), nil
}

// Push はサーバー設定を候補へ反映し、検証して保存する
func (r *reconfigSession) Push(ctx context.Context, candidate *config.AppConfig, authority *entity.ServerConfig) (bool, error) {
	r.mu.Lock()
	held := r.held && !r.released
	r.mu.Unlock()
	if !held {
		return false, domain.ErrSessionNotHeld("push")
	}
	if candidate == nil {
		return false, domain.ErrReconfig("push", fmt.Errorf("candidate configuration is nil"))
	}

	merged := candidate.Clone()
	merged.ApplyServerConfig(authority)
	if err := merged.Validate(); err != nil {
		return false, domain.ErrReconfig("push", fmt.Errorf("merged configuration is invalid: %w", err))
	}
	if err := r.store.configService.UpdateConfig(merged); err != nil {
		return false, domain.ErrReconfig("push", err)
	}

	changed := r.store.configService.StartupConfig().RestartRequiredChanges(merged)
	if len(changed) > 0 {
		r.store.logger.Info(ctx, "Configuration change requires a restart",
			domain.NewField("fields", strings.Join(changed, ",")))
	}
	return len(changed) > 0, nil
}

// Done は排他アクセスを解放する。何度呼んでもよい
func (r *reconfigSession) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	if r.held {
		<-r.store.sem
	}
}

var _ usecase.ReconfigStore = (*ReconfigStoreImpl)(nil)
