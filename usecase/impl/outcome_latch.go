package impl

import (
	"sync"

	"github.com/ca-srg/relaunch/domain/entity"
)

// outcomeLatch は一度だけ確定するダイアログ結果。最初の Finish が勝ち、以降は無視される
type outcomeLatch struct {
	once    sync.Once
	done    chan struct{}
	outcome entity.DialogOutcome
}

func newOutcomeLatch() *outcomeLatch {
	return &outcomeLatch{done: make(chan struct{})}
}

// Finish は結果を確定させる。確定させた場合のみ true を返す
func (l *outcomeLatch) Finish(outcome entity.DialogOutcome) bool {
	if !outcome.IsTerminal() {
		return false
	}
	won := false
	l.once.Do(func() {
		l.outcome = outcome
		close(l.done)
		won = true
	})
	return won
}

// Done は確定時に閉じられるチャネルを返す
func (l *outcomeLatch) Done() <-chan struct{} {
	return l.done
}

// Outcome は確定した結果を返す。未確定なら DialogOutcomeNone
func (l *outcomeLatch) Outcome() entity.DialogOutcome {
	select {
	case <-l.done:
		return l.outcome
	default:
		return entity.DialogOutcomeNone
	}
}

// Resolved は結果が確定済みかを返す
func (l *outcomeLatch) Resolved() bool {
	return l.Outcome() != entity.DialogOutcomeNone
}
