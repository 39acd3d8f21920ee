package impl

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/clock"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// UpdateSchedulerDeps は UpdateScheduler の依存関係
type UpdateSchedulerDeps struct {
	ConfigService   usecase.ConfigService
	Probe           repository.UpdateProbe
	ReconfigStore   usecase.ReconfigStore
	Gate            usecase.RestartGate
	Dialog          usecase.ConfirmationDialog
	Audit           usecase.ShutdownSafetyAudit
	RestartManager  usecase.RestartManager
	StatusService   usecase.StatusService
	Reporter        usecase.CycleReporter
	Notifier        usecase.Notifier
	TimezoneService repository.TimezoneService
	Clock           clock.Clock
	Logger          domain.Logger

	// CurrentVersion はビルド時に埋め込まれたバージョン
	CurrentVersion string

	// Rand は [0,1) の乱数。nil なら math/rand を使う
	Rand func() float64
}

// UpdateSchedulerImpl は UpdateScheduler の実装
type UpdateSchedulerImpl struct {
	deps UpdateSchedulerDeps
	rnd  func() float64

	reschedule chan struct{}

	// cycleMu は同時に一つのサイクルしか走らせない
	cycleMu sync.Mutex

	mu        sync.Mutex
	restarted bool
	sleeping  bool
}

// NewUpdateScheduler は新しい UpdateScheduler を作成する
func NewUpdateScheduler(deps UpdateSchedulerDeps) *UpdateSchedulerImpl {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	rnd := deps.Rand
	if rnd == nil {
		src := rand.New(rand.NewSource(time.Now().UnixNano()))
		var mu sync.Mutex
		rnd = func() float64 {
			mu.Lock()
			defer mu.Unlock()
			return src.Float64()
		}
	}
	return &UpdateSchedulerImpl{deps: deps, rnd: rnd, reschedule: make(chan struct{}, 1)}
}

// Reschedule はスリープ中であれば待ち時間を現在時刻から計算し直させる
func (s *UpdateSchedulerImpl) Reschedule() {
	select {
	case s.reschedule <- struct{}{}:
	default:
	}
}

// Run はスリープとサイクルを繰り返す。ctx のキャンセルで nil を返し、
// スリープ処理そのものが失敗した場合のみエラーで終了する
func (s *UpdateSchedulerImpl) Run(ctx context.Context) error {
	logger := s.deps.Logger
	logger.Info(ctx, "Update scheduler started",
		domain.NewField("current_version", s.deps.CurrentVersion),
		domain.NewField("probe", s.deps.Probe.Source()))

	for {
		if ctx.Err() != nil {
			s.setState(usecase.SchedulerStateStopped)
			logger.Info(ctx, "Update scheduler stopped")
			return nil
		}

		woke, err := s.sleep(ctx)
		if err != nil {
			fatal := domain.ErrSchedule("sleep failed", err)
			logger.Error(ctx, "Update scheduler stopped on a scheduling failure",
				domain.NewField("error", fatal.Error()))
			_ = s.deps.StatusService.RecordFatal(fatal)
			return fatal
		}
		// 中断されたスリープからはサイクルに入らない
		if !woke || ctx.Err() != nil {
			s.setState(usecase.SchedulerStateStopped)
			logger.Info(ctx, "Update scheduler stopped")
			return nil
		}

		// 手動チェックが走っていれば終わるのを待ってから自分のサイクルに入る
		s.cycleMu.Lock()
		if !s.restartTriggered() && ctx.Err() == nil {
			s.runCycle(ctx)
		}
		s.cycleMu.Unlock()

		if s.restartTriggered() {
			logger.Info(ctx, "Restart triggered, update scheduler finished")
			return nil
		}
	}
}

// sleep は次のチェックまで待つ。ctx で中断された場合は woke=false
func (s *UpdateSchedulerImpl) sleep(ctx context.Context) (woke bool, err error) {
	defer func() {
		s.setSleeping(false)
		if r := recover(); r != nil {
			woke, err = false, fmt.Errorf("panic in sleep: %v", r)
		}
	}()

	for {
		now := s.deps.Clock.Now()
		delay, err := s.NextDelay(now)
		if err != nil {
			return false, err
		}

		wakeAt := now.Add(delay)
		s.setSleeping(true)
		s.setState(usecase.SchedulerStateSleeping)
		_ = s.deps.StatusService.UpdateNextCheck(wakeAt)
		s.deps.Logger.Info(ctx, "Sleeping until next update check",
			domain.NewField("delay", delay.Round(time.Second).String()),
			domain.NewField("wake_at", s.formatTime(wakeAt)))

		timer := s.deps.Clock.After(delay)
		if timer == nil {
			return false, fmt.Errorf("clock returned no timer")
		}
		select {
		case <-ctx.Done():
			return false, nil
		case <-timer:
			return true, nil
		case <-s.reschedule:
			// 古いタイマーは放置し、新しい待ち時間で張り直す
			s.deps.Logger.Info(ctx, "Rescheduling next update check")
		}
	}
}

// NextDelay は現在の設定の再起動ウィンドウから次の待ち時間を求める
func (s *UpdateSchedulerImpl) NextDelay(now time.Time) (time.Duration, error) {
	window, err := s.deps.ConfigService.GetConfig().Window()
	if err != nil {
		return 0, fmt.Errorf("failed to read restart window: %w", err)
	}
	return window.NextDelay(now.In(s.location()), s.rnd), nil
}

func (s *UpdateSchedulerImpl) location() *time.Location {
	if s.deps.TimezoneService == nil {
		return time.Local
	}
	loc, _ := s.deps.TimezoneService.GetConfiguredTimezone()
	if loc == nil {
		return time.Local
	}
	return loc
}

func (s *UpdateSchedulerImpl) formatTime(t time.Time) string {
	return t.In(s.location()).Format(time.RFC3339)
}

// RunCycle はスケジュール外で一回分のチェックを実行し、その結果を返す。
// 別のサイクルが実行中なら何もせず CycleResultSkipped を返す
func (s *UpdateSchedulerImpl) RunCycle(ctx context.Context) *entity.CycleRecord {
	if !s.cycleMu.TryLock() {
		s.deps.Logger.Info(ctx, "Update cycle already running, skipping manual check")
		now := s.deps.Clock.Now()
		return &entity.CycleRecord{StartedAt: now, FinishedAt: now, Result: entity.CycleResultSkipped}
	}
	defer s.cycleMu.Unlock()
	return s.runCycle(ctx)
}

// runCycle は cycleMu を保持した状態で呼ぶ
func (s *UpdateSchedulerImpl) runCycle(ctx context.Context) (record *entity.CycleRecord) {
	record = &entity.CycleRecord{StartedAt: s.deps.Clock.Now()}
	restarting := false
	gateHeld := false

	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error(ctx, "Update cycle panicked",
				domain.NewField("panic", fmt.Sprint(r)))
			record.Result = entity.CycleResultNoAction
			record.Reason = fmt.Sprintf("cycle aborted: %v", r)
			if gateHeld && !restarting {
				s.deps.Gate.Deactivate()
			}
		}
		if !restarting {
			s.finish(ctx, record)
			s.setState(s.restingState())
		}
	}()

	currentVersion := s.currentVersion()

	// 1. 更新の確認
	s.setState(usecase.SchedulerStateChecking)
	s.deps.Logger.Info(ctx, "Checking for updates",
		domain.NewField("current_version", currentVersion),
		domain.NewField("probe", s.deps.Probe.Source()))

	result, err := s.probe(ctx, currentVersion)
	if err != nil {
		s.deps.Logger.Error(ctx, "Update probe failed, will retry next cycle",
			domain.NewField("error", err.Error()))
		_ = s.deps.StatusService.RecordError(err)
		record.Result = entity.CycleResultProbeFailed
		record.Reason = err.Error()
		return record
	}
	_ = s.deps.StatusService.ClearError()
	record.NewVersion = result.NewVersionFound
	if result.NewVersionFound {
		record.Version = result.Version
	}

	// 2. 設定の反映
	s.setState(usecase.SchedulerStateReconfiguring)
	configChanged := s.reconfigure(ctx, result)
	record.ConfigChanged = configChanged

	if !result.NewVersionFound && !configChanged {
		s.deps.Logger.Info(ctx, "No action: no new version and no restart-warranting configuration change")
		record.Result = entity.CycleResultNoAction
		return record
	}

	version := currentVersion
	if result.NewVersionFound {
		version = result.Version
	}
	record.Version = version

	request, err := entity.NewRestartRequest(version, s.deps.ConfigService.GetConfig().WaitInterval(), result.NewVersionFound)
	if err != nil {
		s.deps.Logger.Error(ctx, "Failed to build restart request",
			domain.NewField("error", err.Error()))
		record.Result = entity.CycleResultNoAction
		record.Reason = err.Error()
		return record
	}

	// 3. ゲートの取得
	s.setState(usecase.SchedulerStateAuthorizing)
	if !s.deps.Gate.Activate(request) {
		s.deps.Logger.Info(ctx, "Restart negotiation already in progress, skipping",
			domain.NewField("version", version))
		record.Result = entity.CycleResultGateBusy
		return record
	}
	gateHeld = true

	// 4. 利用者の確認
	s.setState(usecase.SchedulerStateConfirming)
	s.deps.Logger.Info(ctx, "Asking for restart confirmation",
		domain.NewField("version", version),
		domain.NewField("new_version", result.NewVersionFound),
		domain.NewField("config_changed", configChanged))
	outcome := s.deps.Dialog.Confirm(ctx, request)
	record.Outcome = outcome

	if !outcome.IsConsent() {
		s.deps.Logger.Info(ctx, "Restart cancelled",
			domain.NewField("version", version),
			domain.NewField("outcome", outcome.String()))
		s.deps.Gate.Deactivate()
		record.Result = entity.CycleResultCancelled
		return record
	}

	// 5. 直前の安全確認（毎回新しく走査する）
	s.setState(usecase.SchedulerStateAuditing)
	verdict := s.deps.Audit.Check(ctx)
	if !verdict.IsSafe() {
		s.deps.Logger.Warn(ctx, "Restart vetoed by safety audit",
			domain.NewField("version", version),
			domain.NewField("outcome", outcome.String()),
			domain.NewField("reason", verdict.Reason()))
		s.deps.Gate.Deactivate()
		if outcome == entity.DialogOutcomeAccept {
			s.explainVeto(ctx, verdict)
		}
		record.Result = entity.CycleResultVetoed
		record.Reason = verdict.Reason()
		return record
	}

	// 6. 再起動。ゲートはプロセス終了まで解放しない
	s.setState(usecase.SchedulerStateRestarting)
	s.deps.Logger.Info(ctx, "Restart approved, restarting",
		domain.NewField("version", version),
		domain.NewField("outcome", outcome.String()))

	s.deps.RestartManager.SetRestartReason(request.Describe())
	if err := s.deps.RestartManager.Restart(version); err != nil {
		s.deps.Logger.Error(ctx, "Restart trigger failed, releasing restart gate",
			domain.NewField("version", version),
			domain.NewField("error", err.Error()))
		_ = s.deps.StatusService.RecordError(err)
		s.deps.Gate.Deactivate()
		record.Result = entity.CycleResultRestartFailed
		record.Reason = err.Error()
		return record
	}

	// 終了処理で ctx が取り消されても記録は残す
	restarting = true
	record.Result = entity.CycleResultRestarting
	s.finish(context.WithoutCancel(ctx), record)

	s.mu.Lock()
	s.restarted = true
	s.mu.Unlock()
	return record
}

// probe は UpdateProbe を呼び出す。パニックも再試行可能な失敗として扱う
func (s *UpdateSchedulerImpl) probe(ctx context.Context, currentVersion string) (result *entity.ProbeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, domain.ErrProbe(s.deps.Probe.Source(), fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err = s.deps.Probe.Check(ctx, currentVersion)
	if err == nil && result == nil {
		err = domain.ErrProbe(s.deps.Probe.Source(), "empty result")
	}
	return result, err
}

// reconfigure はセッション内でサーバー設定を反映する。どの経路でも Done を呼ぶ
func (s *UpdateSchedulerImpl) reconfigure(ctx context.Context, result *entity.ProbeResult) (warranted bool) {
	session := s.deps.ReconfigStore.Open()
	defer session.Done()
	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error(ctx, "Configuration merge panicked, checking software only",
				domain.NewField("panic", fmt.Sprint(r)))
			warranted = false
		}
	}()

	candidate, err := session.Pull(ctx)
	if err != nil {
		s.deps.Logger.Warn(ctx, "Failed to pull configuration, checking software only",
			domain.NewField("error", err.Error()))
		return false
	}

	if result.ServerConfigErr != nil {
		s.deps.Logger.Warn(ctx, "Server configuration is unusable, keeping local configuration",
			domain.NewField("error", result.ServerConfigErr.Error()))
		return false
	}
	if result.ServerConfig == nil {
		return false
	}

	warranted, err = session.Push(ctx, candidate, result.ServerConfig)
	if err != nil {
		s.deps.Logger.Warn(ctx, "Failed to apply server configuration, checking software only",
			domain.NewField("error", err.Error()))
		return false
	}
	return warranted
}

func (s *UpdateSchedulerImpl) explainVeto(ctx context.Context, verdict entity.SafetyVerdict) {
	if s.deps.Notifier == nil {
		return
	}
	message := fmt.Sprintf("Restart deferred because %s.", verdict.Reason())
	if err := s.deps.Notifier.Notify("Restart deferred", message); err != nil {
		s.deps.Logger.Warn(ctx, "Failed to notify about deferred restart",
			domain.NewField("error", err.Error()))
	}
}

func (s *UpdateSchedulerImpl) finish(ctx context.Context, record *entity.CycleRecord) {
	record.FinishedAt = s.deps.Clock.Now()
	_ = s.deps.StatusService.RecordCycle(record)
	if s.deps.Reporter != nil {
		s.deps.Reporter.Report(ctx, record)
	}
	s.deps.Logger.Info(ctx, "Update cycle finished",
		domain.NewField("result", string(record.Result)),
		domain.NewField("outcome", record.Outcome.String()),
		domain.NewField("duration", record.Duration().String()))
}

func (s *UpdateSchedulerImpl) currentVersion() string {
	if cfg := s.deps.ConfigService.GetConfig(); cfg.Update != nil && cfg.Update.CurrentVersion != "" {
		return cfg.Update.CurrentVersion
	}
	return s.deps.CurrentVersion
}

func (s *UpdateSchedulerImpl) setState(state usecase.SchedulerState) {
	_ = s.deps.StatusService.SetState(state)
}

func (s *UpdateSchedulerImpl) setSleeping(sleeping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeping = sleeping
}

// restingState はサイクル終了後の状態。ループがスリープ中ならそれを保つ
func (s *UpdateSchedulerImpl) restingState() usecase.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sleeping {
		return usecase.SchedulerStateSleeping
	}
	return usecase.SchedulerStateIdle
}

func (s *UpdateSchedulerImpl) restartTriggered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restarted
}

var _ usecase.UpdateScheduler = (*UpdateSchedulerImpl)(nil)
