package combat

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback.
type Stopper interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped a callback that had not yet fired. Safe to call multiple times.
	Stop() bool
}

// Scheduler runs display-delay callbacks.
type Scheduler interface {
	// After arranges for fn to run once after d, on a goroutine of the
	// scheduler's choosing.
	After(d time.Duration, fn func()) Stopper
}

// RoundTimer fires a callback after a display delay unless stopped.
// It is safe for concurrent use.
type RoundTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

// NewRoundTimer creates and starts a timer that calls onFire after duration.
// onFire is called in a separate goroutine.
//
// Precondition: duration > 0; onFire must not be nil.
// Postcondition: Returns a running RoundTimer; onFire will be called unless Stop is called first.
func NewRoundTimer(duration time.Duration, onFire func()) *RoundTimer {
	rt := &RoundTimer{}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.timer = time.AfterFunc(duration, func() {
		rt.mu.Lock()
		if rt.stopped {
			rt.mu.Unlock()
			return
		}
		rt.fired = true
		rt.mu.Unlock()
		onFire()
	})
	return rt
}

// Stop prevents the callback from firing.
//
// Postcondition: onFire will not be called after Stop returns, unless it had already started.
func (rt *RoundTimer) Stop() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.stopped || rt.fired {
		rt.stopped = true
		return false
	}
	rt.stopped = true
	rt.timer.Stop()
	return true
}

// Fired reports whether the callback has started.
func (rt *RoundTimer) Fired() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.fired
}

// TimerScheduler is the wall-clock Scheduler backed by RoundTimer.
type TimerScheduler struct{}

// After starts a RoundTimer.
func (TimerScheduler) After(d time.Duration, fn func()) Stopper {
	return NewRoundTimer(d, fn)
}

// ManualScheduler queues callbacks until Advance is called. It lets callers
// drive display delays deterministically, as in tests and step-through replays.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTask
}

type manualTask struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
	owner   *ManualScheduler
}

// NewManualScheduler returns a ManualScheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// After queues fn to run once virtual time reaches now+d.
func (m *ManualScheduler) After(d time.Duration, fn func()) Stopper {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{at: m.now + d, fn: fn, owner: m}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves virtual time forward by d and runs every due callback in
// deadline order on the calling goroutine. Callbacks scheduled while advancing
// run too if they fall due within the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()
	for {
		m.mu.Lock()
		idx := -1
		for i, t := range m.pending {
			if t.stopped || t.fired || t.at > target {
				continue
			}
			if idx < 0 || t.at < m.pending[idx].at {
				idx = i
			}
		}
		if idx < 0 {
			m.now = target
			m.compact()
			m.mu.Unlock()
			return
		}
		t := m.pending[idx]
		t.fired = true
		if t.at > m.now {
			m.now = t.at
		}
		m.mu.Unlock()
		t.fn()
	}
}

// Pending returns the number of callbacks still waiting to fire.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (m *ManualScheduler) compact() {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.pending = live
}

func (t *manualTask) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		t.stopped = true
		return false
	}
	t.stopped = true
	return true
}
