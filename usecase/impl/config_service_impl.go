package impl

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// ConfigServiceImpl は ConfigService の実装
type ConfigServiceImpl struct {
	configRepo       repository.ConfigRepository
	migrationService usecase.ConfigMigrationService
	config           *config.AppConfig
	startup          *config.AppConfig
	logger           domain.Logger
	mu               sync.RWMutex
}

// NewConfigService は新しい ConfigService を作成する
func NewConfigService(configRepo repository.ConfigRepository, migrationService usecase.ConfigMigrationService, logger domain.Logger) (*ConfigServiceImpl, error) {
	// 設定を読み込む（ロガーとマイグレーションサービスを渡す）
	cfg, err := loadConfigWithMigration(configRepo, migrationService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &ConfigServiceImpl{
		configRepo:       configRepo,
		migrationService: migrationService,
		config:           cfg,
		startup:          cfg.Clone(),
		logger:           logger,
	}, nil
}

// loadConfigWithMigration はファイル層をマイグレーションしてから環境変数を重ねる
func loadConfigWithMigration(configRepo repository.ConfigRepository, migrationService usecase.ConfigMigrationService, logger domain.Logger) (*config.AppConfig, error) {
	ctx := context.Background()

	fileCfg, err := configRepo.Load()
	if err != nil {
		// JSON読み込みエラーは無視してデフォルト設定で継続
		logger.Warn(ctx, "Failed to load JSON configuration, using defaults",
			domain.NewField("error", err.Error()),
			domain.NewField("config_path", configRepo.GetConfigPath()))
		fileCfg = nil
	}

	// 環境変数を含めて保存しないよう、マイグレーションはファイル層だけに適用する
	if fileCfg != nil && migrationService != nil && migrationService.NeedsMigration(fileCfg) {
		logger.Info(ctx, "Configuration migration required",
			domain.NewField("current_version", fileCfg.Version),
			domain.NewField("target_version", migrationService.GetCurrentVersion()))

		migratedCfg, err := migrationService.Migrate(fileCfg)
		if err != nil {
			logger.Error(ctx, "Configuration migration failed, using original configuration",
				domain.NewField("error", err.Error()))
		} else {
			if err := configRepo.Save(migratedCfg); err != nil {
				logger.Error(ctx, "Failed to save migrated configuration",
					domain.NewField("error", err.Error()))
			} else {
				logger.Info(ctx, "Migrated configuration saved successfully",
					domain.NewField("config_path", configRepo.GetConfigPath()))
			}
			fileCfg = migratedCfg
		}
	}

	return overlayAndValidate(ctx, fileCfg, configRepo.GetConfigPath(), logger), nil
}

// loadConfigWithFallback loads configuration with fallback to defaults on errors
func loadConfigWithFallback(configRepo repository.ConfigRepository, logger domain.Logger) (*config.AppConfig, error) {
	ctx := context.Background()
	logger.Info(ctx, "Loading configuration with fallback", domain.NewField("config_path", configRepo.GetConfigPath()))

	fileCfg, err := configRepo.Load()
	if err != nil {
		logger.Warn(ctx, "Failed to load JSON configuration, using defaults",
			domain.NewField("error", err.Error()),
			domain.NewField("config_path", configRepo.GetConfigPath()))
		fileCfg = nil
	}
	return overlayAndValidate(ctx, fileCfg, configRepo.GetConfigPath(), logger), nil
}

// overlayAndValidate は環境変数を重ねて検証し、不正ならデフォルトに戻す
func overlayAndValidate(ctx context.Context, fileCfg *config.AppConfig, path string, logger domain.Logger) *config.AppConfig {
	cfg := fileCfg
	if cfg == nil {
		logger.Info(ctx, "No JSON configuration file found, using defaults",
			domain.NewField("config_path", path))
		cfg = config.DefaultConfig()
		cfg.MarkDefaults()
	} else {
		logger.Info(ctx, "Successfully loaded JSON configuration",
			domain.NewField("config_path", path))
	}

	// Load environment variables (they override JSON values)
	if err := cfg.LoadFromEnv(); err != nil {
		logger.Warn(ctx, "Failed to load environment variables, using fallback values",
			domain.NewField("error", err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		logger.Warn(ctx, "Configuration validation failed, using default values",
			domain.NewField("error", err.Error()))

		fallback := config.DefaultConfig()
		fallback.MarkDefaults()
		if envErr := fallback.LoadFromEnv(); envErr != nil || fallback.Validate() != nil {
			fallback = config.DefaultConfig()
			fallback.MarkDefaults()
		}
		return fallback
	}

	logger.Debug(ctx, "Configuration validation successful")
	return cfg
}

// GetConfig は現在の設定のコピーを取得する
func (s *ConfigServiceImpl) GetConfig() *config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 設定のコピーを返す（直接変更を防ぐため）
	return s.config.Clone()
}

// StartupConfig は起動時に読み込んだ設定のコピーを返す
func (s *ConfigServiceImpl) StartupConfig() *config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startup.Clone()
}

// UpdateConfig は設定を更新する
func (s *ConfigServiceImpl) UpdateConfig(newConfig *config.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 新しい設定を検証
	if err := newConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 設定をファイルに保存
	if err := s.configRepo.Save(newConfig); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	// メモリ内の設定を更新
	s.config = newConfig.Clone()

	return nil
}

// GetConfigWithSources は設定とそのソース情報を取得する
func (s *ConfigServiceImpl) GetConfigWithSources() (*config.AppConfig, config.ConfigSourceMap) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := s.config.Clone()
	return cfg, cfg.ConfigSources
}

// SaveConfig は現在の設定をファイルに保存する
func (s *ConfigServiceImpl) SaveConfig() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.configRepo.Save(s.config)
}

// ReloadConfig は設定を再読み込みする
func (s *ConfigServiceImpl) ReloadConfig() error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug(ctx, "Reloading configuration")

	// 設定を再読み込み（マイグレーション対応）
	newConfig, err := loadConfigWithMigration(s.configRepo, s.migrationService, s.logger)
	if err != nil {
		s.logger.Error(ctx, "Failed to reload configuration",
			domain.NewField("error", err.Error()))
		return fmt.Errorf("failed to reload config: %w", err)
	}

	s.config = newConfig
	return nil
}

// GetConfigPath は設定ファイルのパスを返す
func (s *ConfigServiceImpl) GetConfigPath() string {
	return s.configRepo.GetConfigPath()
}

// CreateDefaultConfig はデフォルト設定ファイルを作成する
func (s *ConfigServiceImpl) CreateDefaultConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 設定ファイルが既に存在する場合はエラー
	exists, err := s.configRepo.Exists()
	if err != nil {
		return fmt.Errorf("failed to check config existence: %w", err)
	}
	if exists {
		return fmt.Errorf("config file already exists at %s", s.configRepo.GetConfigPath())
	}

	defaultConfig := config.MinimalDefaultConfig()
	if err := s.configRepo.Save(defaultConfig); err != nil {
		return fmt.Errorf("failed to save default config: %w", err)
	}

	s.config = defaultConfig
	return nil
}

// secretKeys はエクスポート時にマスクするキーの断片
var secretKeys = []string{"password", "credentials_json"}

// ExportConfig は現在の設定をエクスポート用に整形する（パスワードなどをマスク）
func (s *ConfigServiceImpl) ExportConfig() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exportMap := make(map[string]interface{})
	data, err := json.Marshal(s.config)
	if err == nil {
		_ = json.Unmarshal(data, &exportMap)
	}
	maskSecrets(exportMap)

	// ソース情報を追加
	sourcesMap := make(map[string]string)
	for key, source := range s.config.ConfigSources {
		sourcesMap[key] = string(source)
	}
	exportMap["_sources"] = sourcesMap

	return exportMap
}

func maskSecrets(m map[string]interface{}) {
	for key, value := range m {
		switch v := value.(type) {
		case map[string]interface{}:
			maskSecrets(v)
		case string:
			for _, secret := range secretKeys {
				if strings.Contains(key, secret) && v != "" {
					m[key] = "****"
				}
			}
		}
	}
}

// EnsureConfigExists は設定ファイルが存在することを確認し、存在しない場合はテンプレートを作成する
func (s *ConfigServiceImpl) EnsureConfigExists() error {
	ctx := context.Background()
	s.mu.Lock()
	defer s.mu.Unlock()

	configPath := s.configRepo.GetConfigPath()
	exists, err := s.configRepo.Exists()
	if err != nil {
		s.logger.Error(ctx, "Failed to check config existence",
			domain.NewField("error", err.Error()),
			domain.NewField("config_path", configPath))
		return fmt.Errorf("failed to check config existence: %w", err)
	}

	// 設定ファイルが既に存在する場合は何もしない
	if exists {
		return nil
	}

	s.logger.Info(ctx, "Configuration file not found, creating template",
		domain.NewField("config_path", configPath))

	// テンプレートはファイルだけに書き、環境変数を含む実行中の設定は変えない
	if err := s.configRepo.Save(config.MinimalDefaultConfig()); err != nil {
		s.logger.Error(ctx, "Failed to create template configuration",
			domain.NewField("error", err.Error()),
			domain.NewField("config_path", configPath))
		return fmt.Errorf("failed to create template config: %w", err)
	}
	return nil
}

// LoadConfigWithFallback はエラー耐性のある設定読み込みを行う
func (s *ConfigServiceImpl) LoadConfigWithFallback() (*config.AppConfig, error) {
	return loadConfigWithFallback(s.configRepo, s.logger)
}

var _ usecase.ConfigService = (*ConfigServiceImpl)(nil)
