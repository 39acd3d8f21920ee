package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the time source used by the scheduler and the confirmation
// dialog. Tests substitute a fake from NewFake.
type Clock = clockwork.Clock

// Timer is a pending AfterFunc call
type Timer = clockwork.Timer

// FakeClock only moves when Advance is called. AfterFunc callbacks run on
// their own goroutine once their deadline is passed.
type FakeClock = clockwork.FakeClock

// Real returns a Clock backed by the time package.
func Real() Clock { return clockwork.NewRealClock() }

// NewFake returns a FakeClock set to initial.
func NewFake(initial time.Time) *FakeClock { return clockwork.NewFakeClockAt(initial) }
