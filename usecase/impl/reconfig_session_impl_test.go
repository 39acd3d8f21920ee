package impl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
)

// reloadFailingConfigService fails every reload
type reloadFailingConfigService struct {
	*ConfigServiceImpl
}

func (s *reloadFailingConfigService) ReloadConfig() error {
	return errors.New("config file is locked")
}

func intPtr64(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func TestReconfigSession_LiveChangeDoesNotWarrantRestart(t *testing.T) {
	service, configRepo := newTestConfigService(t)
	store := NewReconfigStore(service, &MockLogger{})

	session := store.Open()
	defer session.Done()

	candidate, err := session.Pull(context.Background())
	require.NoError(t, err)

	warranted, err := session.Push(context.Background(), candidate, &entity.ServerConfig{
		WindowStartHour: intPtr(1),
		WindowEndHour:   intPtr(3),
		WaitIntervalMs:  intPtr64(60000),
	})
	require.NoError(t, err)
	assert.False(t, warranted)

	cfg := service.GetConfig()
	assert.Equal(t, 1, cfg.Update.WindowStartHour)
	assert.Equal(t, 60000, cfg.Update.WaitIntervalMs)

	saved, err := configRepo.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Update.WindowEndHour)
}

func TestReconfigSession_StartupChangeWarrantsRestart(t *testing.T) {
	service, _ := newTestConfigService(t)
	logger := &MockLogger{}
	store := NewReconfigStore(service, logger)

	session := store.Open()
	defer session.Done()

	candidate, err := session.Pull(context.Background())
	require.NoError(t, err)

	warranted, err := session.Push(context.Background(), candidate, &entity.ServerConfig{
		ManifestURL: strPtr("https://updates.example.com/v2/manifest.json"),
	})
	require.NoError(t, err)
	assert.True(t, warranted)
	assert.Contains(t, logger.Messages(domain.LogLevelInfo), "Configuration change requires a restart")
}

func TestReconfigSession_InvalidMergeRejected(t *testing.T) {
	service, _ := newTestConfigService(t)
	store := NewReconfigStore(service, &MockLogger{})

	session := store.Open()
	defer session.Done()

	candidate, err := session.Pull(context.Background())
	require.NoError(t, err)

	// 既存の終了時刻 5 と同じ開始時刻
	_, err = session.Push(context.Background(), candidate, &entity.ServerConfig{WindowStartHour: intPtr(5)})
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeReconfig))
	assert.Equal(t, 2, service.GetConfig().Update.WindowStartHour)
}

func TestReconfigSession_PushWithoutPull(t *testing.T) {
	service, _ := newTestConfigService(t)
	store := NewReconfigStore(service, &MockLogger{})

	session := store.Open()
	_, err := session.Push(context.Background(), service.GetConfig(), &entity.ServerConfig{})
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))

	session.Done()
	_, err = session.Pull(context.Background())
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidState))
}

func TestReconfigSession_PullFailureStillReleases(t *testing.T) {
	service, _ := newTestConfigService(t)
	store := NewReconfigStore(&reloadFailingConfigService{service}, &MockLogger{})

	session := store.Open()
	_, err := session.Pull(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeReconfig))

	session.Done()
	session.Done()

	assert.Len(t, store.sem, 0, "pull failure must not leak the lock")

	// 次のセッションもロックを取得でき、同じ理由で失敗する
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	next := store.Open()
	defer next.Done()
	_, err = next.Pull(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "config file is locked")
}

func TestReconfigSession_Exclusive(t *testing.T) {
	service, _ := newTestConfigService(t)
	store := NewReconfigStore(service, &MockLogger{})

	first := store.Open()
	_, err := first.Pull(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	second := store.Open()
	_, err = second.Pull(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	second.Done()

	first.Done()

	third := store.Open()
	defer third.Done()
	_, err = third.Pull(context.Background())
	assert.NoError(t, err)
}
