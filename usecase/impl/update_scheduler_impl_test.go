package impl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
	"github.com/ca-srg/relaunch/infrastructure/clock"
	"github.com/ca-srg/relaunch/infrastructure/config"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

type fakeProbe struct {
	mu     sync.Mutex
	result *entity.ProbeResult
	err    error
	panic  bool
	calls  []string

	// block, when set, holds every check until it is closed; entered
	// receives once per check that reached it
	block       chan struct{}
	entered     chan struct{}
	inFlight    int
	maxInFlight int
}

func (p *fakeProbe) Check(ctx context.Context, currentVersion string) (*entity.ProbeResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, currentVersion)
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	block, entered := p.block, p.entered
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.panic {
		panic("manifest parser crashed")
	}
	return p.result, p.err
}

func (p *fakeProbe) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxInFlight
}

func waitEntered(t *testing.T, entered <-chan struct{}) {
	t.Helper()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("probe was never called")
	}
}

func (p *fakeProbe) Source() string { return "fake" }

func (p *fakeProbe) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeReconfigStore struct {
	pullErr   error
	pushErr   error
	warranted bool
	sessions  []*fakeReconfigSession
}

type fakeReconfigSession struct {
	store  *fakeReconfigStore
	pulls  int
	pushes int
	dones  int
}

func (s *fakeReconfigStore) Open() usecase.ReconfigSession {
	session := &fakeReconfigSession{store: s}
	s.sessions = append(s.sessions, session)
	return session
}

func (s *fakeReconfigSession) Pull(ctx context.Context) (*config.AppConfig, error) {
	s.pulls++
	if s.store.pullErr != nil {
		return nil, s.store.pullErr
	}
	return config.DefaultConfig(), nil
}

func (s *fakeReconfigSession) Push(ctx context.Context, candidate *config.AppConfig, authority *entity.ServerConfig) (bool, error) {
	s.pushes++
	return s.store.warranted, s.store.pushErr
}

func (s *fakeReconfigSession) Done() { s.dones++ }

type scriptedDialog struct {
	outcomes []entity.DialogOutcome
	requests []entity.RestartRequest
}

func (d *scriptedDialog) Confirm(ctx context.Context, request entity.RestartRequest) entity.DialogOutcome {
	d.requests = append(d.requests, request)
	if len(d.outcomes) == 0 {
		return entity.DialogOutcomeCancel
	}
	o := d.outcomes[0]
	if len(d.outcomes) > 1 {
		d.outcomes = d.outcomes[1:]
	}
	return o
}

type scriptedAudit struct {
	verdicts []entity.SafetyVerdict
	calls    int
}

func (a *scriptedAudit) Check(ctx context.Context) entity.SafetyVerdict {
	v := a.verdicts[a.calls%len(a.verdicts)]
	a.calls++
	return v
}

type recordingNotifier struct {
	titles   []string
	messages []string
}

func (n *recordingNotifier) Notify(title, message string) error {
	n.titles = append(n.titles, title)
	n.messages = append(n.messages, message)
	return nil
}

type recordingReporter struct {
	mu      sync.Mutex
	records []entity.CycleRecord
}

func (r *recordingReporter) Report(ctx context.Context, record *entity.CycleRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
}

func (r *recordingReporter) Recent(ctx context.Context, limit int) ([]*entity.CycleRecord, error) {
	return nil, nil
}

func (r *recordingReporter) Summary(ctx context.Context, since time.Time) (map[entity.CycleResult]int, error) {
	return nil, nil
}

type utcTimezone struct{}

func (utcTimezone) GetUserTimezone() (*time.Location, error)       { return time.UTC, nil }
func (utcTimezone) GetConfiguredTimezone() (*time.Location, error) { return time.UTC, nil }
func (utcTimezone) ConvertToUserTime(t time.Time) time.Time        { return t.UTC() }
func (utcTimezone) FormatTimeForUser(t time.Time, layout string) string {
	return t.UTC().Format(layout)
}
func (utcTimezone) GetTimezoneInfo() repository.TimezoneInfo {
	return repository.TimezoneInfo{Name: "UTC", Offset: "+00:00", DetectionMethod: "config"}
}

type schedulerFixture struct {
	scheduler *UpdateSchedulerImpl
	probe     *fakeProbe
	store     *fakeReconfigStore
	gate      *RestartGateImpl
	dialog    *scriptedDialog
	audit     *scriptedAudit
	restarter *RestartManagerForTesting
	status    *StatusServiceImpl
	notifier  *recordingNotifier
	reporter  *recordingReporter
	clock     *clock.FakeClock
	logger    *MockLogger
	config    *ConfigServiceImpl
}

var schedulerEpoch = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	configService, _ := newTestConfigService(t)
	f := &schedulerFixture{
		probe:     &fakeProbe{result: &entity.ProbeResult{}},
		store:     &fakeReconfigStore{},
		gate:      NewRestartGate(),
		dialog:    &scriptedDialog{outcomes: []entity.DialogOutcome{entity.DialogOutcomeAccept}},
		audit:     &scriptedAudit{verdicts: []entity.SafetyVerdict{entity.Safe()}},
		restarter: NewRestartManagerForTesting(),
		status:    NewStatusService(),
		notifier:  &recordingNotifier{},
		reporter:  &recordingReporter{},
		clock:     clock.NewFake(schedulerEpoch),
		logger:    &MockLogger{},
		config:    configService,
	}
	f.scheduler = f.build(f.clock)
	return f
}

func (f *schedulerFixture) build(clk clock.Clock) *UpdateSchedulerImpl {
	return NewUpdateScheduler(UpdateSchedulerDeps{
		ConfigService:   f.config,
		Probe:           f.probe,
		ReconfigStore:   f.store,
		Gate:            f.gate,
		Dialog:          f.dialog,
		Audit:           f.audit,
		RestartManager:  f.restarter,
		StatusService:   f.status,
		Reporter:        f.reporter,
		Notifier:        f.notifier,
		TimezoneService: utcTimezone{},
		Clock:           clk,
		Logger:          f.logger,
		CurrentVersion:  "1.0.0",
		Rand:            func() float64 { return 0.5 },
	})
}

// waitTimers blocks until exactly n timers are armed on the fake clock
func (f *schedulerFixture) waitTimers(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, n), "want %d armed timers", n)
}

func (f *schedulerFixture) offer(version string) {
	f.probe.result = &entity.ProbeResult{NewVersionFound: true, Version: version}
}

func TestUpdateScheduler_NoAction(t *testing.T) {
	f := newSchedulerFixture(t)

	record := f.scheduler.RunCycle(context.Background())

	assert.Equal(t, entity.CycleResultNoAction, record.Result)
	assert.Empty(t, f.dialog.requests)
	assert.Equal(t, 0, f.audit.calls)
	require.Len(t, f.store.sessions, 1)
	assert.Equal(t, 1, f.store.sessions[0].dones)
	assert.Equal(t, []string{"1.0.0"}, f.probe.calls)

	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateIdle, status.State)
	assert.Equal(t, entity.CycleResultNoAction, status.LastResult)
	require.Len(t, f.reporter.records, 1)
}

func TestUpdateScheduler_ProbeFailure(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		f := newSchedulerFixture(t)
		f.probe.err = domain.ErrProbe("fake", "status 503")

		record := f.scheduler.RunCycle(context.Background())

		assert.Equal(t, entity.CycleResultProbeFailed, record.Result)
		assert.Contains(t, f.logger.Messages(domain.LogLevelError), "Update probe failed, will retry next cycle")
		assert.Empty(t, f.store.sessions, "no reconfiguration after a failed probe")

		status, _ := f.status.GetStatus()
		assert.Error(t, status.LastError)
	})

	t.Run("panic", func(t *testing.T) {
		f := newSchedulerFixture(t)
		f.probe.panic = true

		record := f.scheduler.RunCycle(context.Background())

		assert.Equal(t, entity.CycleResultProbeFailed, record.Result)
		assert.Contains(t, record.Reason, "manifest parser crashed")
	})
}

func TestUpdateScheduler_Cancelled(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	f.dialog.outcomes = []entity.DialogOutcome{entity.DialogOutcomeCancel}

	record := f.scheduler.RunCycle(context.Background())

	assert.Equal(t, entity.CycleResultCancelled, record.Result)
	assert.Equal(t, entity.DialogOutcomeCancel, record.Outcome)
	assert.Equal(t, 0, f.audit.calls, "a cancelled prompt must not be audited")
	_, active := f.gate.Active()
	assert.False(t, active)
	assert.Empty(t, f.restarter.RestartedVersions())
}

func TestUpdateScheduler_Vetoed(t *testing.T) {
	tests := []struct {
		name     string
		outcome  entity.DialogOutcome
		notified bool
	}{
		{name: "accepted prompt explains the veto", outcome: entity.DialogOutcomeAccept, notified: true},
		{name: "timed out prompt stays quiet", outcome: entity.DialogOutcomeTimeout, notified: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSchedulerFixture(t)
			f.offer("2.0.0")
			f.dialog.outcomes = []entity.DialogOutcome{tt.outcome}
			f.audit.verdicts = []entity.SafetyVerdict{entity.Unsafe("an upload is in progress")}

			record := f.scheduler.RunCycle(context.Background())

			assert.Equal(t, entity.CycleResultVetoed, record.Result)
			assert.Equal(t, "an upload is in progress", record.Reason)
			_, active := f.gate.Active()
			assert.False(t, active)
			assert.Empty(t, f.restarter.RestartedVersions())

			if tt.notified {
				require.Len(t, f.notifier.messages, 1)
				assert.Equal(t, "Restart deferred because an upload is in progress.", f.notifier.messages[0])
			} else {
				assert.Empty(t, f.notifier.messages)
			}
		})
	}
}

func TestUpdateScheduler_Restart(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")

	record := f.scheduler.RunCycle(context.Background())

	assert.Equal(t, entity.CycleResultRestarting, record.Result)
	assert.Equal(t, []string{"2.0.0"}, f.restarter.RestartedVersions())
	assert.Equal(t, "Version 2.0.0 is available.", f.restarter.GetRestartReason())

	// ゲートはプロセス終了まで保持される
	request, active := f.gate.Active()
	assert.True(t, active)
	assert.Equal(t, "2.0.0", request.Version())
	assert.Equal(t, 5*time.Minute, request.WaitInterval())

	// 新プロセスの起動後に結果が記録される
	require.Len(t, f.reporter.records, 1)
	assert.Equal(t, entity.CycleResultRestarting, f.reporter.records[0].Result)
	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateRestarting, status.State)
}

func TestUpdateScheduler_RestartFailureReleasesGate(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	f.restarter.Err = errors.New("exec format error")

	record := f.scheduler.RunCycle(context.Background())

	assert.Equal(t, entity.CycleResultRestartFailed, record.Result)
	assert.Equal(t, "exec format error", record.Reason)
	_, active := f.gate.Active()
	assert.False(t, active)
	assert.Contains(t, f.logger.Messages(domain.LogLevelError), "Restart trigger failed, releasing restart gate")
	assert.False(t, f.scheduler.restartTriggered())

	// 履歴とテレメトリには失敗として一度だけ残る
	require.Len(t, f.reporter.records, 1)
	assert.Equal(t, entity.CycleResultRestartFailed, f.reporter.records[0].Result)
	assert.Equal(t, "exec format error", f.reporter.records[0].Reason)
	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateIdle, status.State)
}

func TestUpdateScheduler_GateBusy(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	require.True(t, f.gate.Activate(mustRequest(t, "1.5.0")))

	record := f.scheduler.RunCycle(context.Background())

	assert.Equal(t, entity.CycleResultGateBusy, record.Result)
	assert.Empty(t, f.dialog.requests)
	request, active := f.gate.Active()
	assert.True(t, active, "a busy gate is left to its owner")
	assert.Equal(t, "1.5.0", request.Version())
}

func TestUpdateScheduler_AuditRunsEveryAttempt(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	f.audit.verdicts = []entity.SafetyVerdict{
		entity.Unsafe("a sync is in progress"),
		entity.Unsafe("a sync is in progress"),
		entity.Safe(),
	}

	results := []entity.CycleResult{}
	for i := 0; i < 3; i++ {
		results = append(results, f.scheduler.RunCycle(context.Background()).Result)
	}

	assert.Equal(t, []entity.CycleResult{
		entity.CycleResultVetoed,
		entity.CycleResultVetoed,
		entity.CycleResultRestarting,
	}, results)
	assert.Equal(t, 3, f.audit.calls)
}

func TestUpdateScheduler_PullFailureChecksSoftwareOnly(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	f.probe.result.ServerConfig = &entity.ServerConfig{ManifestURL: strPtr("https://other.example.com")}
	f.store.pullErr = domain.ErrReconfig("pull", errors.New("disk full"))

	record := f.scheduler.RunCycle(context.Background())

	require.Len(t, f.store.sessions, 1)
	session := f.store.sessions[0]
	assert.Equal(t, 1, session.dones)
	assert.Equal(t, 0, session.pushes)
	assert.False(t, record.ConfigChanged)
	assert.Contains(t, f.logger.Messages(domain.LogLevelWarn), "Failed to pull configuration, checking software only")

	// ソフトウェア更新の判定はそのまま進む
	require.Len(t, f.dialog.requests, 1)
	assert.True(t, f.dialog.requests[0].IsNewVersion())
	assert.Equal(t, entity.CycleResultRestarting, record.Result)
}

func TestUpdateScheduler_ServerConfig(t *testing.T) {
	t.Run("broken server config is not pushed", func(t *testing.T) {
		f := newSchedulerFixture(t)
		f.probe.result = &entity.ProbeResult{ServerConfigErr: domain.ErrServerConfig("hour1 equals hour2", nil)}
		f.store.warranted = true

		record := f.scheduler.RunCycle(context.Background())

		assert.Equal(t, entity.CycleResultNoAction, record.Result)
		assert.Equal(t, 0, f.store.sessions[0].pushes)
		assert.Equal(t, 1, f.store.sessions[0].dones)
		assert.Contains(t, f.logger.Messages(domain.LogLevelWarn), "Server configuration is unusable, keeping local configuration")
	})

	t.Run("restart-warranting change offers current version", func(t *testing.T) {
		f := newSchedulerFixture(t)
		f.probe.result = &entity.ProbeResult{ServerConfig: &entity.ServerConfig{ManifestURL: strPtr("https://other.example.com")}}
		f.store.warranted = true

		record := f.scheduler.RunCycle(context.Background())

		assert.True(t, record.ConfigChanged)
		require.Len(t, f.dialog.requests, 1)
		assert.Equal(t, "1.0.0", f.dialog.requests[0].Version())
		assert.False(t, f.dialog.requests[0].IsNewVersion())
		assert.Equal(t, []string{"1.0.0"}, f.restarter.RestartedVersions())
	})

	t.Run("push failure", func(t *testing.T) {
		f := newSchedulerFixture(t)
		f.probe.result = &entity.ProbeResult{ServerConfig: &entity.ServerConfig{}}
		f.store.pushErr = errors.New("validation failed")
		f.store.warranted = true

		record := f.scheduler.RunCycle(context.Background())

		assert.Equal(t, entity.CycleResultNoAction, record.Result)
		assert.Equal(t, 1, f.store.sessions[0].dones)
	})
}

func TestUpdateScheduler_NextDelay(t *testing.T) {
	f := newSchedulerFixture(t)

	// 00:00 から 02:00-05:00 の窓の中央まで
	delay, err := f.scheduler.NextDelay(schedulerEpoch)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Hour+30*time.Minute, delay)
}

func TestUpdateScheduler_RunStopsOnCancelDuringSleep(t *testing.T) {
	f := newSchedulerFixture(t)
	f.offer("2.0.0")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	f.waitTimers(t, 1)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, 0, f.probe.Calls(), "an interrupted sleep must not start a cycle")

	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateStopped, status.State)
}

func TestUpdateScheduler_RunUntilRestart(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	// 1 回目: 更新なし
	f.waitTimers(t, 1)
	status, _ := f.status.GetStatus()
	require.NotNil(t, status.NextCheckAt)
	assert.Equal(t, schedulerEpoch.Add(3*time.Hour+30*time.Minute), *status.NextCheckAt)
	f.clock.Advance(4 * time.Hour)

	// 2 回目: 更新あり
	f.waitTimers(t, 1)
	f.probe.mu.Lock()
	f.probe.result = &entity.ProbeResult{NewVersionFound: true, Version: "2.0.0"}
	f.probe.mu.Unlock()
	f.clock.Advance(24 * time.Hour)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the restart was triggered")
	}
	assert.Equal(t, 2, f.probe.Calls())
	assert.Equal(t, []string{"2.0.0"}, f.restarter.RestartedVersions())
}

// panickingClock fails inside the sleep primitive
type panickingClock struct {
	*clock.FakeClock
}

func (panickingClock) After(time.Duration) <-chan time.Time {
	panic("timer wheel corrupted")
}

func TestUpdateScheduler_RunFatalSleepFailure(t *testing.T) {
	f := newSchedulerFixture(t)
	scheduler := f.build(panickingClock{f.clock})

	err := scheduler.Run(context.Background())

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeSchedule))
	assert.Equal(t, 0, f.probe.Calls())

	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateFailed, status.State)
	assert.Error(t, status.FatalError)
}

// jumpClock lets the wall clock jump without firing timers, the way a
// laptop waking from sleep sees it
type jumpClock struct {
	*clock.FakeClock
	mu     sync.Mutex
	offset time.Duration
}

func (c *jumpClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.FakeClock.Now().Add(c.offset)
}

func (c *jumpClock) jump(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

func TestUpdateScheduler_RescheduleAfterClockJump(t *testing.T) {
	f := newSchedulerFixture(t)
	jc := &jumpClock{FakeClock: f.clock}
	scheduler := f.build(jc)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- scheduler.Run(ctx) }()

	f.waitTimers(t, 1)

	// スリープ復帰で 06:00 に飛んだ: 今日の窓は過ぎているので翌日の窓を狙う
	jc.jump(6 * time.Hour)
	scheduler.Reschedule()
	f.waitTimers(t, 2)

	status, _ := f.status.GetStatus()
	require.NotNil(t, status.NextCheckAt)
	assert.Equal(t, schedulerEpoch.Add(27*time.Hour+30*time.Minute), *status.NextCheckAt)
	assert.Equal(t, 0, f.probe.Calls())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestUpdateScheduler_ManualCheckDuringScheduledCycle(t *testing.T) {
	f := newSchedulerFixture(t)
	f.probe.block = make(chan struct{})
	f.probe.entered = make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()

	f.waitTimers(t, 1)
	f.clock.Advance(4 * time.Hour)
	waitEntered(t, f.probe.entered)

	record := f.scheduler.RunCycle(context.Background())
	assert.Equal(t, entity.CycleResultSkipped, record.Result)
	assert.Equal(t, 1, f.probe.Calls())
	assert.Contains(t, f.logger.Messages(domain.LogLevelInfo), "Update cycle already running, skipping manual check")

	close(f.probe.block)
	f.waitTimers(t, 1)

	assert.Equal(t, 1, f.probe.MaxInFlight())
	f.reporter.mu.Lock()
	assert.Len(t, f.reporter.records, 1, "a skipped manual check is not recorded")
	f.reporter.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestUpdateScheduler_ScheduledCycleWaitsForManualCheck(t *testing.T) {
	f := newSchedulerFixture(t)
	f.probe.block = make(chan struct{})
	f.probe.entered = make(chan struct{}, 4)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()
	f.waitTimers(t, 1)

	manual := make(chan *entity.CycleRecord, 1)
	go func() { manual <- f.scheduler.RunCycle(context.Background()) }()
	waitEntered(t, f.probe.entered)

	// 予定の時刻が来ても、手動チェックが終わるまでループはサイクルに入らない
	f.clock.Advance(4 * time.Hour)
	select {
	case <-f.probe.entered:
		t.Fatal("scheduled cycle started while the manual check was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.probe.block)
	select {
	case record := <-manual:
		assert.Equal(t, entity.CycleResultNoAction, record.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("manual check did not return")
	}
	waitEntered(t, f.probe.entered)
	f.waitTimers(t, 1)

	assert.Equal(t, 2, f.probe.Calls())
	assert.Equal(t, 1, f.probe.MaxInFlight())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestUpdateScheduler_ManualCheckKeepsSleepingState(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.scheduler.Run(ctx) }()
	f.waitTimers(t, 1)

	record := f.scheduler.RunCycle(ctx)
	assert.Equal(t, entity.CycleResultNoAction, record.Result)

	status, _ := f.status.GetStatus()
	assert.Equal(t, usecase.SchedulerStateSleeping, status.State)

	// 予定していたチェックはそのまま走る
	f.clock.Advance(4 * time.Hour)
	f.waitTimers(t, 1)
	assert.Equal(t, 2, f.probe.Calls())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
