package repository

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
)

// defaultMaxManifestBytes は上限が設定されていない場合のマニフェストサイズ上限
const defaultMaxManifestBytes = 1 << 20

// releaseManifest はリリースマニフェストの JSON 表現
type releaseManifest struct {
	Version      string            `json:"version"`
	Channel      string            `json:"channel"`
	Artifacts    []entity.Artifact `json:"artifacts"`
	ServerConfig json.RawMessage   `json:"server_config"`
}

// readManifest は上限付きでマニフェスト本文を読み込む
func readManifest(source string, body io.Reader, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = defaultMaxManifestBytes
	}

	data, err := io.ReadAll(io.LimitReader(body, int64(limit)+1))
	if err != nil {
		return nil, domain.ErrProbeWithCause(source, fmt.Errorf("failed to read manifest: %w", err))
	}
	if len(data) > limit {
		return nil, domain.ErrProbe(source, fmt.Sprintf("manifest exceeds %d bytes", limit))
	}
	return data, nil
}

// decodeManifest はマニフェストを解析し、現在のバージョンと比較した結果を返す。
// server_config が壊れている場合もバージョンの比較結果は有効なまま ServerConfigErr に記録する
func decodeManifest(source string, data []byte, currentVersion, channel string, now time.Time) (*entity.ProbeResult, error) {
	var manifest releaseManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, domain.ErrProbeWithCause(source, fmt.Errorf("failed to parse manifest: %w", err))
	}
	if strings.TrimSpace(manifest.Version) == "" {
		return nil, domain.ErrProbe(source, "manifest has no version")
	}

	latest, err := goversion.NewVersion(manifest.Version)
	if err != nil {
		return nil, domain.ErrProbeWithCause(source, fmt.Errorf("invalid manifest version %q: %w", manifest.Version, err))
	}

	// 解析できない現在バージョンは 0.0.0 として扱い、必ず更新対象にする
	current, err := goversion.NewVersion(currentVersion)
	if err != nil {
		current, _ = goversion.NewVersion("0.0.0")
	}

	result := &entity.ProbeResult{
		Version:   latest.Original(),
		Channel:   manifest.Channel,
		Artifacts: manifest.Artifacts,
		CheckedAt: now,
	}

	// 別チャンネル向けのマニフェストは更新として扱わない
	sameChannel := channel == "" || manifest.Channel == "" || manifest.Channel == channel
	result.NewVersionFound = sameChannel && latest.GreaterThan(current)

	result.ServerConfig, result.ServerConfigErr = decodeServerConfig(manifest.ServerConfig)
	return result, nil
}

// decodeServerConfig は server_config を解析・検証する
func decodeServerConfig(raw json.RawMessage) (*entity.ServerConfig, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var sc entity.ServerConfig
	if err := json.Unmarshal(raw, &sc); err != nil {
		return nil, domain.ErrServerConfig("malformed server_config", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, domain.ErrServerConfig("invalid server_config", err)
	}
	return &sc, nil
}
