package repository

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/config"
)

const (
	configFileName = "config.json"

	// previousSuffix は上書き直前の設定を一世代だけ残すファイルの接尾辞。
	// サーバー設定の反映で壊れた場合に手で戻せるようにする
	previousSuffix = ".prev"

	configFileMode os.FileMode = 0600
	configDirMode  os.FileMode = 0700
)

// JSONConfigRepository は ~/.config/relaunch/config.json を読み書きする
type JSONConfigRepository struct {
	configDir  string
	configFile string
}

var _ repository.ConfigRepository = (*JSONConfigRepository)(nil)

// NewJSONConfigRepository はホームディレクトリ配下の既定の場所を使う
func NewJSONConfigRepository() repository.ConfigRepository {
	homeDir, _ := os.UserHomeDir()
	return NewJSONConfigRepositoryAt(filepath.Join(homeDir, ".config", "relaunch"))
}

// NewJSONConfigRepositoryAt は指定ディレクトリの config.json を扱う
func NewJSONConfigRepositoryAt(configDir string) *JSONConfigRepository {
	return &JSONConfigRepository{
		configDir:  configDir,
		configFile: filepath.Join(configDir, configFileName),
	}
}

// ConfigDir は設定ディレクトリを返す（履歴 DB の既定の置き場所）
func (r *JSONConfigRepository) ConfigDir() string {
	return r.configDir
}

// GetConfigPath は設定ファイルのパスを返す
func (r *JSONConfigRepository) GetConfigPath() string {
	return r.configFile
}

// PreviousConfigPath は直前の設定のコピーのパスを返す
func (r *JSONConfigRepository) PreviousConfigPath() string {
	return r.configFile + previousSuffix
}

// Exists は設定ファイルが存在するかどうかを確認する
func (r *JSONConfigRepository) Exists() (bool, error) {
	_, err := os.Stat(r.configFile)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to check config file existence: %w", err)
	}
}

// Load はデフォルト値の上に設定ファイルを重ねて読み込む。ファイルが無ければ nil, nil
func (r *JSONConfigRepository) Load() (*config.AppConfig, error) {
	data, err := os.ReadFile(r.configFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 資格情報を含みうるので、緩いパーミッションは読み込み時に締め直す
	if err := tighten(r.configFile, configFileMode); err != nil {
		return nil, err
	}

	cfg, err := config.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save は検証済みの設定を一時ファイル経由で置き換える。
// 内容が変わる場合だけ、置き換え前の設定を .prev に残す
func (r *JSONConfigRepository) Save(cfg *config.AppConfig) error {
	if err := r.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := r.EnsureConfigDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	current, err := os.ReadFile(r.configFile)
	switch {
	case err == nil:
		if bytes.Equal(current, data) {
			return nil
		}
		if err := os.WriteFile(r.PreviousConfigPath(), current, configFileMode); err != nil {
			return fmt.Errorf("failed to keep previous config: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to read current config: %w", err)
	}

	return writeAtomic(r.configDir, r.configFile, data)
}

// EnsureConfigDir は設定ディレクトリを 0700 で用意する
func (r *JSONConfigRepository) EnsureConfigDir() error {
	if err := os.MkdirAll(r.configDir, configDirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return tighten(r.configDir, configDirMode)
}

// Validate は設定内容の妥当性を検証する
func (r *JSONConfigRepository) Validate(cfg *config.AppConfig) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	return cfg.Validate()
}

// writeAtomic は同じディレクトリの一時ファイルに書いてから rename する
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp config file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp config file: %w", err)
	}
	if err := os.Chmod(tmpPath, configFileMode); err != nil {
		cleanup()
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func tighten(path string, mode os.FileMode) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode().Perm() == mode {
		return nil
	}
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
