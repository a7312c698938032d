package form

import (
	"sync"
	"testing"
	"time"
)

// eagerScheduler fires every callback at once on its own goroutine, the way
// time.AfterFunc behaves with a near-zero duration.
type eagerScheduler struct{ wg sync.WaitGroup }

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func (s *eagerScheduler) Now() time.Time { return epoch }

func (s *eagerScheduler) AfterFunc(_ time.Duration, f func()) Timer {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
	return noopTimer{}
}

func phases(st SurfaceState) []Phase {
	out := make([]Phase, 0, len(st.Notifications))
	for _, n := range st.Notifications {
		out = append(out, n.Phase)
	}
	return out
}

func TestPresenterLifecycle(t *testing.T) {
	surface := NewMemorySurface()
	sched := NewManualScheduler(epoch)
	p := NewPresenter(surface, sched, PresenterOptions{})

	n := p.Show(KindSuccess, "Sent", "Thanks")
	if n.ID == 0 || n.Phase != PhaseVisible || !n.ShownAt.Equal(epoch) {
		t.Fatalf("Show = %+v", n)
	}

	sched.Advance(DefaultDisplayDuration - time.Millisecond)
	if got := phases(surface.State()); len(got) != 1 || got[0] != PhaseVisible {
		t.Fatalf("before display ends: %v", got)
	}

	sched.Advance(time.Millisecond)
	if got := phases(surface.State()); len(got) != 1 || got[0] != PhaseLeaving {
		t.Fatalf("at display end: %v", got)
	}

	sched.Advance(DefaultExitDuration)
	if got := surface.State().Notifications; len(got) != 0 {
		t.Fatalf("after exit: %v", got)
	}
	if len(p.Active()) != 0 || sched.Pending() != 0 {
		t.Fatalf("active=%v pending=%d", p.Active(), sched.Pending())
	}
}

func TestPresenterStacks(t *testing.T) {
	surface := NewMemorySurface()
	sched := NewManualScheduler(epoch)
	p := NewPresenter(surface, sched, PresenterOptions{})

	first := p.Show(KindError, "Failed", "")
	sched.Advance(time.Second)
	second := p.Show(KindSuccess, "Sent", "")

	st := surface.State()
	if len(st.Notifications) != 2 || st.Notifications[0].ID != first.ID || st.Notifications[1].ID != second.ID {
		t.Fatalf("stack = %+v", st.Notifications)
	}

	// First leaves on its own schedule, second is unaffected.
	sched.Advance(4*time.Second + DefaultExitDuration)
	st = surface.State()
	if len(st.Notifications) != 1 || st.Notifications[0].ID != second.ID || st.Notifications[0].Phase != PhaseVisible {
		t.Fatalf("after first expiry = %+v", st.Notifications)
	}
}

func TestPresenterMaxStack(t *testing.T) {
	surface := NewMemorySurface()
	sched := NewManualScheduler(epoch)
	p := NewPresenter(surface, sched, PresenterOptions{MaxStack: 1})

	p.Show(KindError, "one", "")
	second := p.Show(KindError, "two", "")

	st := surface.State()
	if len(st.Notifications) != 1 || st.Notifications[0].ID != second.ID {
		t.Fatalf("stack = %+v", st.Notifications)
	}
	if sched.Pending() != 1 {
		t.Errorf("evicted timer still pending: %d", sched.Pending())
	}
}

func TestPresenterDispose(t *testing.T) {
	surface := NewMemorySurface()
	sched := NewManualScheduler(epoch)
	p := NewPresenter(surface, sched, PresenterOptions{Display: time.Second, Exit: time.Second})

	p.Show(KindSuccess, "a", "")
	p.Show(KindSuccess, "b", "")
	p.Dispose()
	p.Dispose()

	if sched.Pending() != 0 {
		t.Errorf("pending timers after Dispose: %d", sched.Pending())
	}
	if len(surface.State().Notifications) != 0 {
		t.Error("notifications left after Dispose")
	}
	if n := p.Show(KindError, "late", ""); n.ID != 0 {
		t.Errorf("Show after Dispose = %+v", n)
	}
	if d, e := p.Timings(); d != time.Second || e != time.Second {
		t.Errorf("Timings = %v %v", d, e)
	}
}

func TestPresenterTinyDisplayNeverOrphans(t *testing.T) {
	surface := NewMemorySurface()
	sched := &eagerScheduler{}
	p := NewPresenter(surface, sched, PresenterOptions{Display: time.Nanosecond, Exit: time.Nanosecond})

	for i := 0; i < 200; i++ {
		p.Show(KindSuccess, "Sent", "")
	}
	sched.wg.Wait()

	if got := surface.State().Notifications; len(got) != 0 {
		t.Fatalf("%d notifications left on the surface", len(got))
	}
	if got := p.Active(); len(got) != 0 {
		t.Fatalf("active = %v", got)
	}
}
