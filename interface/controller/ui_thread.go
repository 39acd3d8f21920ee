package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/ca-srg/relaunch/domain"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// UIThread runs every UI function on one goroutine, in submission order
type UIThread struct {
	tasks chan uiTask
	quit  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	running bool
	once    sync.Once
}

type uiTask struct {
	fn   func()
	errc chan error
}

var _ usecase.UIDispatcher = (*UIThread)(nil)

// NewUIThread creates a stopped UI thread
func NewUIThread() *UIThread {
	return &UIThread{
		tasks: make(chan uiTask),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the UI goroutine
func (u *UIThread) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return
	}
	select {
	case <-u.quit:
		return
	default:
	}
	u.running = true
	go u.loop()
}

// Stop ends the UI goroutine. Pending Invoke calls fail with UI_UNAVAILABLE.
func (u *UIThread) Stop() {
	u.once.Do(func() { close(u.quit) })

	u.mu.Lock()
	running := u.running
	u.mu.Unlock()
	if running {
		<-u.done
	}
}

// Available reports whether the UI goroutine accepts work
func (u *UIThread) Available() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return false
	}
	select {
	case <-u.quit:
		return false
	default:
		return true
	}
}

// Invoke runs fn on the UI goroutine and waits for it to return
func (u *UIThread) Invoke(ctx context.Context, fn func()) error {
	if !u.Available() {
		return domain.ErrUIUnavailable("invoke")
	}

	task := uiTask{fn: fn, errc: make(chan error, 1)}
	select {
	case u.tasks <- task:
	case <-u.quit:
		return domain.ErrUIUnavailable("invoke")
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted the task runs to completion; waiting is not cancellable
	// so fn never outlives the caller's view of it.
	return <-task.errc
}

func (u *UIThread) loop() {
	defer func() {
		u.mu.Lock()
		u.running = false
		u.mu.Unlock()
		close(u.done)
	}()

	for {
		select {
		case <-u.quit:
			return
		case task := <-u.tasks:
			task.errc <- runUITask(task.fn)
		}
	}
}

func runUITask(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic on UI thread: %v", r)
		}
	}()
	fn()
	return nil
}
