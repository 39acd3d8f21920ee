package impl

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/ca-srg/relaunch/domain"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

const (
	// EnvRestartedFrom は再起動前のバージョンを新プロセスへ渡す環境変数
	EnvRestartedFrom = "RELAUNCH_RESTARTED_FROM"

	// EnvTargetVersion は再起動で採用するバージョンを新プロセスへ渡す環境変数
	EnvTargetVersion = "RELAUNCH_TARGET_VERSION"

	// exitGrace は新プロセスの起動を待ってから終了するまでの猶予
	exitGrace = 100 * time.Millisecond
)

// RestartManagerImpl は RestartManager の実装
type RestartManagerImpl struct {
	mu              sync.Mutex
	restartPending  bool
	restartReason   string
	executablePath  string
	originalArgs    []string
	currentVersion  string
	shutdownHandler func()

	// テストで差し替える
	start func(cmd *exec.Cmd) error
	exit  func(code int)
}

// NewRestartManager は新しい RestartManager を作成する
func NewRestartManager(currentVersion string) (*RestartManagerImpl, error) {
	// 実行可能ファイルのパスを取得
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}

	return &RestartManagerImpl{
		executablePath: execPath,
		originalArgs:   os.Args[1:], // プログラム名を除く引数
		currentVersion: currentVersion,
		start:          func(cmd *exec.Cmd) error { return cmd.Start() },
		exit:           os.Exit,
	}, nil
}

// Restart は現在のバイナリを同じ引数で起動し直し、自身を終了させる
func (m *RestartManagerImpl) Restart(version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.restartPending {
		return domain.ErrRestart(version, fmt.Errorf("restart already pending"))
	}

	cmd := m.command(version)
	if err := m.start(cmd); err != nil {
		return domain.ErrRestart(version, fmt.Errorf("failed to start new process: %w", err))
	}
	m.restartPending = true
	if m.restartReason == "" {
		m.restartReason = fmt.Sprintf("update to %s", version)
	}

	// 終了処理は呼び出し元に任せ、登録が無ければ猶予の後に終了する
	if m.shutdownHandler != nil {
		go m.shutdownHandler()
		return nil
	}
	go func() {
		time.Sleep(exitGrace)
		m.exit(0)
	}()
	return nil
}

// command は新プロセスのコマンドを組み立てる
func (m *RestartManagerImpl) command(version string) *exec.Cmd {
	cmd := exec.Command(m.executablePath, m.originalArgs...)
	cmd.Env = append(os.Environ(),
		EnvRestartedFrom+"="+m.currentVersion,
		EnvTargetVersion+"="+version,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	// プロセスグループを分離（親プロセスが終了しても子プロセスが継続するように）
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	return cmd
}

// IsRestartPending は再起動が開始済みかどうかを返す
func (m *RestartManagerImpl) IsRestartPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restartPending
}

// GetRestartReason は再起動の理由を返す
func (m *RestartManagerImpl) GetRestartReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restartReason
}

// SetRestartReason は再起動の理由を設定する
func (m *RestartManagerImpl) SetRestartReason(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restartReason = reason
}

// SetShutdownHandler は新プロセス起動後に呼ばれる終了処理を登録する
func (m *RestartManagerImpl) SetShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandler = handler
}

// RestartedFrom は再起動前のバージョンを返す。通常起動なら空文字
func RestartedFrom() string {
	return os.Getenv(EnvRestartedFrom)
}

// RunningVersion は再起動で引き継いだバージョンがあればそれを、無ければ compiled を返す
func RunningVersion(compiled string) string {
	if v := os.Getenv(EnvTargetVersion); v != "" {
		return v
	}
	return compiled
}

// RestartManagerForTesting はテスト用の RestartManager 実装
type RestartManagerForTesting struct {
	mu       sync.Mutex
	versions []string
	reason   string
	handler  func()
	Err      error
}

// NewRestartManagerForTesting はテスト用の RestartManager を作成する
func NewRestartManagerForTesting() *RestartManagerForTesting {
	return &RestartManagerForTesting{}
}

// Restart は呼び出しを記録する（テスト用）
func (m *RestartManagerForTesting) Restart(version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if len(m.versions) > 0 {
		return domain.ErrRestart(version, fmt.Errorf("restart already pending"))
	}
	m.versions = append(m.versions, version)
	return nil
}

// IsRestartPending は再起動が保留中かどうかを返す（テスト用）
func (m *RestartManagerForTesting) IsRestartPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.versions) > 0
}

// GetRestartReason は再起動の理由を返す（テスト用）
func (m *RestartManagerForTesting) GetRestartReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// SetRestartReason は再起動の理由を設定する（テスト用）
func (m *RestartManagerForTesting) SetRestartReason(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reason = reason
}

// SetShutdownHandler は終了処理を記録する（テスト用）
func (m *RestartManagerForTesting) SetShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
}

// ShutdownHandler は登録された終了処理を返す（テスト用）
func (m *RestartManagerForTesting) ShutdownHandler() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handler
}

// RestartedVersions はテスト用：Restart に渡されたバージョンを返す
func (m *RestartManagerForTesting) RestartedVersions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.versions...)
}

var (
	_ usecase.RestartManager = (*RestartManagerImpl)(nil)
	_ usecase.RestartManager = (*RestartManagerForTesting)(nil)
)
