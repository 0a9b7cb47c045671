package patrol

import "time"

// Timer fires once at its armed time and then every interval. It is driven
// by the caller's clock so simulations stay deterministic.
type Timer struct {
	interval time.Duration
	next     time.Time
	armed    bool
}

func NewTimer(interval time.Duration) *Timer {
	return &Timer{interval: interval}
}

// Arm schedules the first firing at at.
func (t *Timer) Arm(at time.Time) {
	t.next = at
	t.armed = true
}

func (t *Timer) Disarm() {
	t.armed = false
}

func (t *Timer) Armed() bool {
	return t.armed
}

func (t *Timer) SetInterval(d time.Duration) {
	t.interval = d
}

// Next is the time of the next firing; zero when disarmed.
func (t *Timer) Next() time.Time {
	if !t.armed {
		return time.Time{}
	}
	return t.next
}

// Fire reports whether the timer is due at now and, if so, schedules the
// next firing. Missed intervals are skipped rather than replayed.
func (t *Timer) Fire(now time.Time) bool {
	if !t.armed || now.Before(t.next) {
		return false
	}
	t.next = t.next.Add(t.interval)
	if !t.next.After(now) {
		t.next = now.Add(t.interval)
	}
	return true
}
