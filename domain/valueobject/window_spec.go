package valueobject

import (
	"fmt"
	"time"
)

// minWindowSpan keeps the random range open when a DST change squeezes
// the window to zero or less.
const minWindowSpan = time.Hour

// WindowSpec is the daily [hour1, hour2) clock-time window in which a
// restart may be offered. A window with hour2 <= hour1 wraps past midnight.
type WindowSpec struct {
	hour1 int
	hour2 int
}

// NewWindowSpec validates and creates a window
func NewWindowSpec(hour1, hour2 int) (WindowSpec, error) {
	if hour1 < 0 || hour1 > 23 {
		return WindowSpec{}, fmt.Errorf("window start hour must be between 0 and 23, got %d", hour1)
	}
	if hour2 < 0 || hour2 > 23 {
		return WindowSpec{}, fmt.Errorf("window end hour must be between 0 and 23, got %d", hour2)
	}
	if hour1 == hour2 {
		return WindowSpec{}, fmt.Errorf("window start and end hour must differ, both are %d", hour1)
	}
	return WindowSpec{hour1: hour1, hour2: hour2}, nil
}

// StartHour returns hour1
func (w WindowSpec) StartHour() int { return w.hour1 }

// EndHour returns hour2
func (w WindowSpec) EndHour() int { return w.hour2 }

func (w WindowSpec) String() string {
	return fmt.Sprintf("%02d:00-%02d:00", w.hour1, w.hour2)
}

// NextWindow returns the start of the next occurrence of the window and
// its length. Both instants are built with calendar arithmetic in the
// location of now, so hour-of-day survives DST changes. The window starts
// today only when hour1 is still ahead of now, and the returned start is
// always after now.
func (w WindowSpec) NextWindow(now time.Time) (start time.Time, span time.Duration) {
	year, month, day := now.Date()
	loc := now.Location()

	day1 := day
	if w.hour1 <= now.Hour() {
		day1++
	}
	t1 := wallHour(year, month, day1, w.hour1, loc)
	if !t1.After(now) {
		day1++
		t1 = wallHour(year, month, day1, w.hour1, loc)
	}

	day2 := day1
	if w.hour2 <= w.hour1 {
		day2++
	}
	t2 := wallHour(year, month, day2, w.hour2, loc)
	return t1, clampSpan(t2.Sub(t1))
}

// gapStep is the resolution used to walk out of a skipped wall-clock hour.
// Zone offsets change in multiples of 15 minutes.
const gapStep = 15 * time.Minute

// wallHour returns the first real instant at or after hour:00 on the given
// date. When the hour does not exist (spring forward), time.Date may resolve
// to an instant before it; that instant is moved forward past the gap.
func wallHour(year int, month time.Month, day, hour int, loc *time.Location) time.Time {
	t := time.Date(year, month, day, hour, 0, 0, 0, loc)
	y, m, d := time.Date(year, month, day, 12, 0, 0, 0, loc).Date()
	for i := 0; i < 24*4 && wallBefore(t, y, m, d, hour); i++ {
		t = t.Add(gapStep)
	}
	return t
}

// wallBefore reports whether t reads earlier than hour:00 on y-m-d
func wallBefore(t time.Time, y int, m time.Month, d, hour int) bool {
	ty, tm, td := t.Date()
	switch {
	case ty != y:
		return ty < y
	case tm != m:
		return tm < m
	case td != d:
		return td < d
	}
	return t.Hour() < hour
}

// NextDelay returns how long to wait before the next check. rnd must
// return a value in [0, 1). The result is never negative.
func (w WindowSpec) NextDelay(now time.Time, rnd func() float64) time.Duration {
	start, span := w.NextWindow(now)
	return delayInto(start.Sub(now), span, rnd())
}

func clampSpan(span time.Duration) time.Duration {
	if span < minWindowSpan {
		return minWindowSpan
	}
	return span
}

// delayInto picks a point fraction of the way through span after base.
// A negative base, possible after the wall clock moves backwards, is
// treated as zero.
func delayInto(base, span time.Duration, fraction float64) time.Duration {
	if base < 0 {
		base = 0
	}
	span = clampSpan(span)
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return base + time.Duration(float64(span)*fraction)
}
