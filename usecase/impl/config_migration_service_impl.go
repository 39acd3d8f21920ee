package impl

import (
	"context"
	"fmt"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/infrastructure/config"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// ConfigMigrationServiceImpl は ConfigMigrationService の実装
type ConfigMigrationServiceImpl struct {
	logger domain.Logger
}

// NewConfigMigrationService は新しい ConfigMigrationService を作成する
func NewConfigMigrationService(logger domain.Logger) *ConfigMigrationServiceImpl {
	return &ConfigMigrationServiceImpl{
		logger: logger,
	}
}

// NeedsMigration は設定がマイグレーションを必要とするかチェックする
func (s *ConfigMigrationServiceImpl) NeedsMigration(cfg *config.AppConfig) bool {
	if cfg == nil {
		return false
	}
	// 旧バージョン、またはフラットな旧フィールドが残っている場合
	return cfg.Version < s.GetCurrentVersion() ||
		cfg.LegacyRestartHour != nil ||
		cfg.LegacyWaitSeconds != nil
}

// GetCurrentVersion は現在の設定バージョンを返す
func (s *ConfigMigrationServiceImpl) GetCurrentVersion() int {
	return config.CurrentVersion
}

// Migrate はレガシー形式から現在の形式への移行を実行する
func (s *ConfigMigrationServiceImpl) Migrate(cfg *config.AppConfig) (*config.AppConfig, error) {
	ctx := context.Background()

	// すでに最新バージョンの場合はそのまま返す
	if !s.NeedsMigration(cfg) {
		s.logger.Debug(ctx, "Configuration is already at current version",
			domain.NewField("version", cfg.Version))
		return cfg, nil
	}

	s.logger.Info(ctx, "Starting configuration migration",
		domain.NewField("from_version", cfg.Version),
		domain.NewField("to_version", s.GetCurrentVersion()))

	// 設定のコピーを作成（元の設定を変更しないため）
	migratedCfg := cfg.Clone()

	if err := s.migrateToV2(migratedCfg); err != nil {
		s.logger.Error(ctx, "Failed to migrate configuration",
			domain.NewField("error", err.Error()))
		return nil, fmt.Errorf("failed to migrate configuration: %w", err)
	}

	// マイグレーション後の検証
	if err := migratedCfg.Validate(); err != nil {
		s.logger.Error(ctx, "Migrated configuration validation failed",
			domain.NewField("error", err.Error()))
		return nil, fmt.Errorf("migrated configuration validation failed: %w", err)
	}

	s.logger.Info(ctx, "Configuration migration completed successfully",
		domain.NewField("new_version", migratedCfg.Version))

	return migratedCfg, nil
}

// migrateToV2 は単一の再起動時刻と秒単位の待機時間を update セクションへ移す
func (s *ConfigMigrationServiceImpl) migrateToV2(cfg *config.AppConfig) error {
	ctx := context.Background()

	if cfg.Update == nil {
		cfg.Update = config.DefaultConfig().Update
	}
	if cfg.ConfigSources == nil {
		cfg.ConfigSources = make(config.ConfigSourceMap)
	}

	if cfg.LegacyRestartHour != nil {
		hour := *cfg.LegacyRestartHour
		if hour < 0 || hour > 23 {
			return domain.ErrInvalidInput("restart_hour", "must be between 0 and 23")
		}
		// 旧形式は開始時刻のみなので 1 時間の窓として扱う
		cfg.Update.WindowStartHour = hour
		cfg.Update.WindowEndHour = (hour + 1) % 24
		cfg.ConfigSources["Update.WindowStartHour"] = config.SourceJSONFile
		cfg.ConfigSources["Update.WindowEndHour"] = config.SourceJSONFile
		s.logger.Debug(ctx, "Migrated restart_hour to restart window",
			domain.NewField("restart_hour", hour),
			domain.NewField("window", fmt.Sprintf("%d-%d", cfg.Update.WindowStartHour, cfg.Update.WindowEndHour)))
	}

	if cfg.LegacyWaitSeconds != nil {
		seconds := *cfg.LegacyWaitSeconds
		if seconds <= 0 {
			return domain.ErrInvalidInput("wait_seconds", "must be positive")
		}
		cfg.Update.WaitIntervalMs = seconds * 1000
		cfg.ConfigSources["Update.WaitIntervalMs"] = config.SourceJSONFile
		s.logger.Debug(ctx, "Migrated wait_seconds to wait_interval_ms",
			domain.NewField("wait_seconds", seconds))
	}

	cfg.LegacyRestartHour = nil
	cfg.LegacyWaitSeconds = nil
	cfg.Version = s.GetCurrentVersion()
	return nil
}

var _ usecase.ConfigMigrationService = (*ConfigMigrationServiceImpl)(nil)
