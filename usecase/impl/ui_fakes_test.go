package impl

import (
	"context"
	"errors"
	"sync"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// fakeDispatcher runs UI work inline on the calling goroutine
type fakeDispatcher struct {
	mu          sync.Mutex
	unavailable bool
	err         error
	invocations int

	// busy, when set, holds every call until it is closed
	busy chan struct{}
}

func (d *fakeDispatcher) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.unavailable
}

func (d *fakeDispatcher) Invoke(ctx context.Context, fn func()) error {
	d.mu.Lock()
	d.invocations++
	err := d.err
	busy := d.busy
	d.mu.Unlock()
	if busy != nil {
		<-busy
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	fn()
	return nil
}

func (d *fakeDispatcher) Invocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invocations
}

// fakePresenter records prompts and exposes the respond callback
type fakePresenter struct {
	mu        sync.Mutex
	err       error
	requests  []entity.RestartRequest
	respond   func(entity.DialogOutcome)
	dismissed int
	shown     chan struct{}
}

func newFakePresenter() *fakePresenter {
	return &fakePresenter{shown: make(chan struct{}, 16)}
}

func (p *fakePresenter) ShowRestartPrompt(request entity.RestartRequest, respond func(entity.DialogOutcome)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.requests = append(p.requests, request)
	p.respond = respond
	p.shown <- struct{}{}
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.dismissed++
	}, nil
}

func (p *fakePresenter) Respond(outcome entity.DialogOutcome) {
	p.mu.Lock()
	respond := p.respond
	p.mu.Unlock()
	respond(outcome)
}

func (p *fakePresenter) Dismissed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dismissed
}

// stubSurface is a UI surface with a fixed verdict
type stubSurface struct {
	id       string
	verdict  entity.SafetyVerdict
	children []usecase.UISurface
	checks   int
}

func (s *stubSurface) SurfaceID() string { return s.id }
func (s *stubSurface) Title() string     { return s.id }
func (s *stubSurface) SafeToInterrupt() entity.SafetyVerdict {
	s.checks++
	return s.verdict
}
func (s *stubSurface) Children() []usecase.UISurface { return s.children }

var errUIStopped = errors.New("ui thread stopped")
