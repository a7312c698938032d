package form

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/contact/internal/logger"
)

var validSnap = Snapshot{
	Name:    "Ann Example",
	Email:   "ann@example.com",
	Subject: "Question",
	Message: "How do I reach support?",
}

// gate is a backend that blocks until released.
type gate struct {
	release chan error
	mu      sync.Mutex
	got     []Snapshot
}

func newGate() *gate { return &gate{release: make(chan error, 1)} }

func (g *gate) Deliver(ctx context.Context, s Snapshot) error {
	g.mu.Lock()
	g.got = append(g.got, s)
	g.mu.Unlock()
	select {
	case err := <-g.release:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type harness struct {
	surface *MemorySurface
	sched   *ManualScheduler
	ctrl    *Controller

	mu  sync.Mutex
	trs []Transition
}

func newHarness(t *testing.T, b Backend, opts Options) *harness {
	t.Helper()
	h := &harness{surface: NewMemorySurfaceFrom(validSnap), sched: NewManualScheduler(epoch)}
	opts.Backend = b
	opts.Scheduler = h.sched
	ctrl, err := New(h.surface, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctrl.OnTransition(func(tr Transition) {
		h.mu.Lock()
		h.trs = append(h.trs, tr)
		h.mu.Unlock()
	})
	h.ctrl = ctrl
	t.Cleanup(ctrl.Dispose)
	return h
}

func (h *harness) transitions() []Transition {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Transition(nil), h.trs...)
}

func TestSubmitSuccess(t *testing.T) {
	g := newGate()
	h := newHarness(t, g, Options{})

	task, err := h.ctrl.SubmitForm(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if st := h.ctrl.State(); st != Submitting {
		t.Fatalf("state = %s, want submitting", st)
	}
	if label, enabled := h.surface.SubmitControl(); label != DefaultSendingLabel || enabled {
		t.Fatalf("control = %q/%v while submitting", label, enabled)
	}
	if _, err := h.ctrl.Submit(context.Background(), validSnap); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Submit err = %v, want ErrBusy", err)
	}

	g.release <- nil
	if err := task.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	want := []Transition{
		{Idle, Submitting},
		{Submitting, Succeeded},
		{Succeeded, Idle},
	}
	if diff := cmp.Diff(want, h.transitions()); diff != "" {
		t.Errorf("transitions (-want +got):\n%s", diff)
	}
	if n := h.ctrl.machine.transitions(); n != len(want) {
		t.Errorf("machine counted %d transitions, want %d", n, len(want))
	}

	st := h.surface.State()
	for _, f := range Fields {
		if fv := st.Fields[f]; fv.Value != "" || fv.Error != "" || fv.Validity != Untouched {
			t.Errorf("field %s after success = %+v", f, fv)
		}
	}
	if st.SubmitLabel != DefaultSubmitLabel || !st.SubmitEnabled {
		t.Errorf("control = %q/%v after success", st.SubmitLabel, st.SubmitEnabled)
	}
	if len(st.Notifications) != 1 || st.Notifications[0].Kind != KindSuccess || st.Notifications[0].Title != DefaultSuccessTitle {
		t.Errorf("notifications = %+v", st.Notifications)
	}
	if diff := cmp.Diff([]Snapshot{validSnap}, g.got); diff != "" {
		t.Errorf("delivered (-want +got):\n%s", diff)
	}

	// Notification leaves at +5s and is gone by +5.5s.
	h.sched.Advance(DefaultDisplayDuration + DefaultExitDuration)
	if n := len(h.surface.State().Notifications); n != 0 {
		t.Errorf("notifications after 5.5s = %d", n)
	}
}

func TestSubmitFailureKeepsValues(t *testing.T) {
	boom := errors.New("connection refused")
	h := newHarness(t, BackendFunc(func(context.Context, Snapshot) error { return boom }), Options{})

	task, err := h.ctrl.SubmitForm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := task.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want boom", err)
	}

	want := []Transition{{Idle, Submitting}, {Submitting, Failed}, {Failed, Idle}}
	if diff := cmp.Diff(want, h.transitions()); diff != "" {
		t.Errorf("transitions (-want +got):\n%s", diff)
	}
	if got := h.surface.Snapshot(); got != validSnap {
		t.Errorf("values after failure = %+v", got)
	}
	st := h.surface.State()
	if !st.SubmitEnabled || st.SubmitLabel != DefaultSubmitLabel {
		t.Errorf("control = %q/%v", st.SubmitLabel, st.SubmitEnabled)
	}
	if len(st.Notifications) != 1 || st.Notifications[0].Kind != KindError {
		t.Errorf("notifications = %+v", st.Notifications)
	}
	if h.ctrl.State() != Idle {
		t.Errorf("state = %s", h.ctrl.State())
	}
}

func TestSubmitInvalidSnapshot(t *testing.T) {
	g := newGate()
	h := newHarness(t, g, Options{})

	_, err := h.ctrl.Submit(context.Background(), Snapshot{Email: "nope"})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 4 {
		t.Fatalf("validation error = %+v", ve)
	}
	if n := h.surface.State().Annotations(); n != 4 {
		t.Errorf("annotations = %d, want 4", n)
	}
	if h.ctrl.State() != Idle || len(h.transitions()) != 0 {
		t.Errorf("state = %s, transitions = %v", h.ctrl.State(), h.transitions())
	}
	if len(g.got) != 0 {
		t.Error("backend called for invalid snapshot")
	}
}

func TestSubmitTimeout(t *testing.T) {
	h := newHarness(t, newGate(), Options{SubmitTimeout: 20 * time.Millisecond})

	task, err := h.ctrl.SubmitForm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	<-task.Done()
	if !errors.Is(task.Err(), context.DeadlineExceeded) {
		t.Fatalf("Err = %v, want deadline exceeded", task.Err())
	}
	if h.ctrl.State() != Idle {
		t.Errorf("state = %s", h.ctrl.State())
	}
	if got := h.surface.Snapshot(); got != validSnap {
		t.Error("values lost on timeout")
	}
}

func TestFieldInteraction(t *testing.T) {
	h := newHarness(t, newGate(), Options{})
	h.surface.ResetFields()

	// Typing into an untouched field does not validate it.
	h.ctrl.Input(EmailField, "a")
	if st := h.surface.State(); st.Fields[EmailField].Error != "" {
		t.Fatal("input validated untouched field")
	}

	// Blur always validates.
	if res := h.ctrl.Blur(EmailField); res.Valid {
		t.Fatal("blur on bad email passed")
	}
	// Repeated failure keeps exactly one annotation.
	h.ctrl.ValidateField(FormField{EmailField, "still bad"})
	if n := h.surface.State().Annotations(); n != 1 {
		t.Fatalf("annotations = %d, want 1", n)
	}

	// Once invalid, input re-validates and clears the annotation.
	h.ctrl.Input(EmailField, "a@b.co")
	fv := h.surface.State().Fields[EmailField]
	if fv.Error != "" || fv.Validity != Valid || fv.Value != "a@b.co" {
		t.Fatalf("after fix = %+v", fv)
	}
}

func TestValidateFormClearsPrevious(t *testing.T) {
	h := newHarness(t, newGate(), Options{})

	if h.ctrl.ValidateForm(Snapshot{}) {
		t.Fatal("empty snapshot valid")
	}
	if n := h.surface.State().Annotations(); n != 4 {
		t.Fatalf("annotations = %d", n)
	}
	if !h.ctrl.ValidateForm(validSnap) {
		t.Fatal("valid snapshot rejected")
	}
	if n := h.surface.State().Annotations(); n != 0 {
		t.Fatalf("annotations after valid pass = %d", n)
	}
}

func TestDisposeCancelsInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := newGate()
	surface := NewMemorySurfaceFrom(validSnap)
	sched := NewManualScheduler(epoch)
	ctrl, err := New(surface, Options{Backend: g, Scheduler: sched})
	if err != nil {
		t.Fatal(err)
	}
	ctrl.Presenter().Show(KindError, "earlier", "")

	task, err := ctrl.SubmitForm(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ctrl.Dispose()
	ctrl.Dispose()

	select {
	case <-task.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("task did not finish after Dispose")
	}
	if !errors.Is(task.Err(), ErrDisposed) {
		t.Errorf("task err = %v, want ErrDisposed", task.Err())
	}
	if sched.Pending() != 0 {
		t.Errorf("pending timers = %d", sched.Pending())
	}
	if _, err := ctrl.Submit(context.Background(), validSnap); !errors.Is(err, ErrDisposed) {
		t.Errorf("Submit after Dispose = %v", err)
	}
}

func TestSubmitCallerCancel(t *testing.T) {
	h := newHarness(t, newGate(), Options{})
	ctx, cancel := context.WithCancel(context.Background())

	task, err := h.ctrl.SubmitForm(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	<-task.Done()
	if !errors.Is(task.Err(), context.Canceled) {
		t.Errorf("err = %v, want canceled", task.Err())
	}
	if h.ctrl.State() != Idle {
		t.Errorf("state = %s", h.ctrl.State())
	}
}

func TestInteractionAfterDispose(t *testing.T) {
	h := newHarness(t, newGate(), Options{})
	h.ctrl.Dispose()
	before := h.surface.State()

	if res := h.ctrl.ValidateField(FormField{EmailField, "bad"}); res.Valid {
		t.Error("result still computed after Dispose")
	}
	if res := h.ctrl.Blur(NameField); !res.Valid {
		t.Error("blur result wrong after Dispose")
	}
	h.ctrl.Input(MessageField, "x")
	if h.ctrl.ValidateForm(Snapshot{}) {
		t.Error("empty snapshot valid after Dispose")
	}

	if diff := cmp.Diff(before, h.surface.State()); diff != "" {
		t.Errorf("surface changed after Dispose (-before +after):\n%s", diff)
	}
}

func TestSubmitLogsNoVisitorEmail(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core).Sugar())

	h := newHarness(t, BackendFunc(func(context.Context, Snapshot) error { return nil }), Options{})
	task, err := h.ctrl.Submit(ctx, validSnap)
	if err != nil {
		t.Fatal(err)
	}
	if err := task.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if logs.Len() == 0 {
		t.Fatal("no log entries")
	}
	for _, e := range logs.All() {
		for k, v := range e.ContextMap() {
			if s, ok := v.(string); ok && strings.Contains(s, validSnap.Email) {
				t.Errorf("%q logged field %s = %q", e.Message, k, s)
			}
		}
	}
}
