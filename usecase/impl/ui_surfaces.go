package impl

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

var surfaceSeq atomic.Uint64

func nextSurfaceID(kind string) string {
	return fmt.Sprintf("%s-%d", kind, surfaceSeq.Add(1))
}

// ProgressSurface は実行中の処理を表す。実行中は中断できない
type ProgressSurface struct {
	id    string
	title string

	mu       sync.Mutex
	running  bool
	children []usecase.UISurface
}

// NewProgressSurface は停止状態のプログレスを作成する
func NewProgressSurface(title string) *ProgressSurface {
	return &ProgressSurface{id: nextSurfaceID("progress"), title: title}
}

func (p *ProgressSurface) SurfaceID() string { return p.id }
func (p *ProgressSurface) Title() string     { return p.title }

// Start は処理の開始を記録する
func (p *ProgressSurface) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = true
}

// Finish は処理の終了を記録する
func (p *ProgressSurface) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
}

// Running は実行中かを返す
func (p *ProgressSurface) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Attach は子サーフェスを追加する
func (p *ProgressSurface) Attach(child usecase.UISurface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children = append(p.children, child)
}

func (p *ProgressSurface) SafeToInterrupt() entity.SafetyVerdict {
	if p.Running() {
		return entity.Unsafe(fmt.Sprintf("%s is in progress", p.title))
	}
	return entity.Safe()
}

func (p *ProgressSurface) Children() []usecase.UISurface {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]usecase.UISurface(nil), p.children...)
}

// NotificationSurface は情報表示のみのサーフェス。常に中断してよい
type NotificationSurface struct {
	id      string
	title   string
	message string
}

// NewNotificationSurface は通知サーフェスを作成する
func NewNotificationSurface(title, message string) *NotificationSurface {
	return &NotificationSurface{id: nextSurfaceID("notification"), title: title, message: message}
}

func (n *NotificationSurface) SurfaceID() string                     { return n.id }
func (n *NotificationSurface) Title() string                         { return n.title }
func (n *NotificationSurface) Message() string                       { return n.message }
func (n *NotificationSurface) SafeToInterrupt() entity.SafetyVerdict { return entity.Safe() }
func (n *NotificationSurface) Children() []usecase.UISurface         { return nil }

// restartPromptSurface は表示中の再起動確認。応答を待っている間は中断できない
type restartPromptSurface struct {
	id      string
	request entity.RestartRequest
	latch   *outcomeLatch
}

func newRestartPromptSurface(request entity.RestartRequest, latch *outcomeLatch) *restartPromptSurface {
	return &restartPromptSurface{id: nextSurfaceID("restart-prompt"), request: request, latch: latch}
}

func (s *restartPromptSurface) SurfaceID() string { return s.id }
func (s *restartPromptSurface) Title() string {
	return fmt.Sprintf("Restart to %s", s.request.Version())
}

func (s *restartPromptSurface) SafeToInterrupt() entity.SafetyVerdict {
	if s.latch.Resolved() {
		return entity.Safe()
	}
	return entity.Unsafe(fmt.Sprintf("a restart prompt for %s is waiting for an answer", s.request.Version()))
}

func (s *restartPromptSurface) Children() []usecase.UISurface { return nil }

var (
	_ usecase.UISurface = (*ProgressSurface)(nil)
	_ usecase.UISurface = (*NotificationSurface)(nil)
	_ usecase.UISurface = (*restartPromptSurface)(nil)
)
