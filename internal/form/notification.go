// internal/form/notification.go
//
// Forms subsystem: transient notifications.
//
// Context
//   After a submission completes the user sees a short-lived toast.  Each
//   notification lives for a fixed display duration, then enters the
//   "leaving" phase for the exit transition, then is detached from the
//   surface.  Overlapping notifications stack; MaxStack optionally caps the
//   stack by dropping the oldest.
//
// Concurrency
//   Surface calls happen with the presenter lock held, and a notification is
//   on the surface before its first timer is armed.  Timer callbacks take the
//   same lock, so however short the display duration, phase changes and
//   removal always follow the add.  Surfaces must not call back into the
//   Presenter.
//
//------------------------------------------------------------------------------

package form

import (
	"sync"
	"time"

	"github.com/yanizio/contact/internal/metrics"
)

// Kind distinguishes success toasts from failure toasts.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Phase is where a notification is in its lifecycle.
type Phase string

const (
	PhaseVisible Phase = "visible"
	PhaseLeaving Phase = "leaving"
)

// Default timings.
const (
	DefaultDisplayDuration = 5 * time.Second
	DefaultExitDuration    = 500 * time.Millisecond
)

// Notification is one toast.
type Notification struct {
	ID      uint64    `json:"id"`
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Body    string    `json:"body,omitempty"`
	ShownAt time.Time `json:"shown_at"`
	Phase   Phase     `json:"phase"`
}

// PresenterOptions tunes a Presenter.  Zero fields take the defaults.
type PresenterOptions struct {
	Display  time.Duration
	Exit     time.Duration
	MaxStack int // 0 means unlimited
}

// Presenter shows notifications on a Surface and removes them on schedule.
type Presenter struct {
	surface Surface
	sched   Scheduler
	opts    PresenterOptions

	mu       sync.Mutex
	nextID   uint64
	active   []uint64
	timers   map[uint64]Timer
	disposed bool
}

// NewPresenter wires a Presenter to a surface and scheduler.
func NewPresenter(s Surface, sched Scheduler, opts PresenterOptions) *Presenter {
	if opts.Display <= 0 {
		opts.Display = DefaultDisplayDuration
	}
	if opts.Exit <= 0 {
		opts.Exit = DefaultExitDuration
	}
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Presenter{
		surface: s,
		sched:   sched,
		opts:    opts,
		timers:  make(map[uint64]Timer),
	}
}

// Show adds a notification and schedules its removal after Display + Exit.
// After Dispose it returns the zero Notification and renders nothing.
func (p *Presenter) Show(kind Kind, title, body string) Notification {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return Notification{}
	}
	p.nextID++
	n := Notification{
		ID:      p.nextID,
		Kind:    kind,
		Title:   title,
		Body:    body,
		ShownAt: p.sched.Now(),
		Phase:   PhaseVisible,
	}
	p.active = append(p.active, n.ID)

	if p.opts.MaxStack > 0 {
		for len(p.active) > p.opts.MaxStack {
			old := p.active[0]
			if t, ok := p.timers[old]; ok {
				t.Stop()
			}
			p.drop(old)
			p.surface.RemoveNotification(old)
			metrics.NotificationsActive.Dec()
		}
	}

	p.surface.AddNotification(n)
	metrics.NotificationsActive.Inc()

	id := n.ID
	p.timers[id] = p.sched.AfterFunc(p.opts.Display, func() { p.leave(id) })
	p.mu.Unlock()
	return n
}

// leave starts the exit transition and schedules detachment.
func (p *Presenter) leave(id uint64) {
	p.mu.Lock()
	if p.disposed || !p.isActive(id) {
		p.mu.Unlock()
		return
	}
	p.surface.SetNotificationPhase(id, PhaseLeaving)
	p.timers[id] = p.sched.AfterFunc(p.opts.Exit, func() { p.remove(id) })
	p.mu.Unlock()
}

func (p *Presenter) remove(id uint64) {
	p.mu.Lock()
	if !p.isActive(id) {
		p.mu.Unlock()
		return
	}
	p.drop(id)
	p.surface.RemoveNotification(id)
	metrics.NotificationsActive.Dec()
	p.mu.Unlock()
}

// isActive and drop require p.mu.
func (p *Presenter) isActive(id uint64) bool {
	for _, a := range p.active {
		if a == id {
			return true
		}
	}
	return false
}

func (p *Presenter) drop(id uint64) {
	delete(p.timers, id)
	for i, a := range p.active {
		if a == id {
			p.active = append(p.active[:i], p.active[i+1:]...)
			return
		}
	}
}

// Active returns the IDs of notifications still on the surface, oldest first.
func (p *Presenter) Active() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]uint64(nil), p.active...)
}

// Dispose stops every pending timer and detaches every notification.  It is
// idempotent.
func (p *Presenter) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	for _, t := range p.timers {
		t.Stop()
	}
	for _, id := range p.active {
		p.surface.RemoveNotification(id)
		metrics.NotificationsActive.Dec()
	}
	p.active, p.timers = nil, nil
	p.mu.Unlock()
}

// Timings returns the display and exit durations in effect.
func (p *Presenter) Timings() (display, exit time.Duration) {
	return p.opts.Display, p.opts.Exit
}
