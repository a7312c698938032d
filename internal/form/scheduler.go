// internal/form/scheduler.go
//
// Forms subsystem: delayed callbacks.
//
// Context
//   Notifications dismiss themselves on a timer.  Scheduler abstracts that
//   timer so tests can move time forward deterministically instead of
//   sleeping.  RealScheduler is a thin wrapper over time.AfterFunc.
//
//------------------------------------------------------------------------------

package form

import (
	"sort"
	"sync"
	"time"
)

// Timer is a pending callback.  Stop reports whether it prevented the call.
type Timer interface {
	Stop() bool
}

// Scheduler fires f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// RealScheduler uses the wall clock.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
func (RealScheduler) Now() time.Time                            { return time.Now() }

// -----------------------------------------------------------------------------
// ManualScheduler
// -----------------------------------------------------------------------------

// ManualScheduler is a virtual clock.  Callbacks run synchronously inside
// Advance, in due order, on the caller's goroutine.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	s       *ManualScheduler
	due     time.Time
	seq     uint64
	f       func()
	stopped bool
}

// NewManualScheduler starts the virtual clock at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{s: m, due: m.now.Add(d), seq: m.seq, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers scheduled by callbacks that fire during this call.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.f()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// nextDue pops the earliest live timer due at or before target and moves the
// clock to its due time.
func (m *ManualScheduler) nextDue(target time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.timers = live
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].due.Equal(m.timers[j].due) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].due.Before(m.timers[j].due)
	})

	if len(m.timers) == 0 || m.timers[0].due.After(target) {
		return nil
	}
	t := m.timers[0]
	t.stopped = true
	m.timers = m.timers[1:]
	m.now = t.due
	return t
}
