package impl

import (
	"sync"

	"github.com/ca-srg/relaunch/domain/entity"
	usecase "github.com/ca-srg/relaunch/usecase/interface"
)

// restartGateState は mutex の下でのみ読み書きする。active が false なら request はゼロ値
type restartGateState struct {
	active  bool
	request entity.RestartRequest
}

// RestartGateImpl は RestartGate の実装
type RestartGateImpl struct {
	mu    sync.Mutex
	state restartGateState
}

// NewRestartGate は非アクティブなゲートを作成する
func NewRestartGate() *RestartGateImpl {
	return &RestartGateImpl{}
}

// Activate はゲートが空いている場合のみリクエストを登録する
func (g *RestartGateImpl) Activate(request entity.RestartRequest) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state.active {
		return false
	}
	g.state = restartGateState{active: true, request: request}
	return true
}

// Deactivate はゲートを無条件に解放する
func (g *RestartGateImpl) Deactivate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = restartGateState{}
}

// Active は登録中のリクエストを返す
func (g *RestartGateImpl) Active() (entity.RestartRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.request, g.state.active
}

var _ usecase.RestartGate = (*RestartGateImpl)(nil)
