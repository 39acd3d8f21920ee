package impl

import (
	"sync"

	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

type registeredSurface struct {
	seq     uint64
	surface usecase.UISurface
}

// SurfaceRegistryImpl は SurfaceRegistry の実装。どのゴルーチンからも呼べる
type SurfaceRegistryImpl struct {
	mu       sync.Mutex
	next     uint64
	surfaces []registeredSurface
}

// NewSurfaceRegistry は空のレジストリを作成する
func NewSurfaceRegistry() *SurfaceRegistryImpl {
	return &SurfaceRegistryImpl{}
}

// Register はサーフェスを登録する。返された関数は何度呼んでもよい
func (r *SurfaceRegistryImpl) Register(surface usecase.UISurface) func() {
	r.mu.Lock()
	r.next++
	seq := r.next
	r.surfaces = append(r.surfaces, registeredSurface{seq: seq, surface: surface})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(seq) })
	}
}

func (r *SurfaceRegistryImpl) remove(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.surfaces {
		if s.seq == seq {
			r.surfaces = append(r.surfaces[:i], r.surfaces[i+1:]...)
			return
		}
	}
}

// TopLevel は登録順のスナップショットを返す
func (r *SurfaceRegistryImpl) TopLevel() []usecase.UISurface {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]usecase.UISurface, 0, len(r.surfaces))
	for _, s := range r.surfaces {
		out = append(out, s.surface)
	}
	return out
}

var _ usecase.SurfaceRegistry = (*SurfaceRegistryImpl)(nil)
