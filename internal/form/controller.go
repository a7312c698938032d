// internal/form/controller.go
//
// Forms subsystem: contact form controller.
//
// Context
//   Controller owns one rendered contact form.  It turns host events (blur,
//   input, submit) into validation passes and surface updates, and it runs
//   the submission lifecycle:
//
//      Idle ─SUBMIT→ Submitting ─SUCCEED→ Succeeded ─RESET→ Idle
//                               └─FAIL──→ Failed    ─RESET→ Idle
//
//   While Submitting the submit control is disabled and shows the sending
//   label.  On success the fields are reset and a success notification is
//   shown.  On failure the fields are preserved and an error notification is
//   shown.  Failures are never retried automatically.
//
// Concurrency
//   Every public method is safe for concurrent use.  Delivery runs on its own
//   goroutine under a timeout; the controller lock is never held across
//   Backend.Deliver.  A second Submit while Submitting returns ErrBusy even if
//   the host forgot to disable its control.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/contact/internal/logger"
	"github.com/yanizio/contact/internal/metrics"
)

// Default texts and timeout.
const (
	DefaultSendingLabel  = "Sending..."
	DefaultSubmitTimeout = 30 * time.Second

	DefaultSuccessTitle = "Message sent successfully!"
	DefaultSuccessBody  = "We will get back to you soon."
	DefaultFailureTitle = "Your message could not be sent."
	DefaultFailureBody  = "Please try again in a moment.  Your text has been kept."
)

// Options configures a Controller.  Zero fields take the defaults.
type Options struct {
	Rules     *Rules
	Backend   Backend
	Scheduler Scheduler
	Presenter PresenterOptions

	SubmitTimeout time.Duration
	SendingLabel  string

	SuccessTitle string
	SuccessBody  string
	FailureTitle string
	FailureBody  string
}

func (o *Options) setDefaults() {
	if o.Backend == nil {
		o.Backend = BackendFunc(func(context.Context, Snapshot) error { return nil })
	}
	if o.Scheduler == nil {
		o.Scheduler = RealScheduler{}
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = DefaultSubmitTimeout
	}
	if o.SendingLabel == "" {
		o.SendingLabel = DefaultSendingLabel
	}
	if o.SuccessTitle == "" {
		o.SuccessTitle = DefaultSuccessTitle
	}
	if o.SuccessBody == "" {
		o.SuccessBody = DefaultSuccessBody
	}
	if o.FailureTitle == "" {
		o.FailureTitle = DefaultFailureTitle
	}
	if o.FailureBody == "" {
		o.FailureBody = DefaultFailureBody
	}
}

// Transition is one observed state change.
type Transition struct{ From, To State }

// Controller drives one contact form.  Build with New; release with Dispose.
type Controller struct {
	surface   Surface
	validator *Validator
	presenter *Presenter
	opts      Options

	mu        sync.Mutex
	machine   *submissionMachine
	task      *Task
	disposed  bool
	observers []func(Transition)
}

// New initializes a controller over s.  The machine starts in Idle.
func New(s Surface, opts Options) (*Controller, error) {
	opts.setDefaults()
	m, err := newSubmissionMachine()
	if err != nil {
		return nil, err
	}
	return &Controller{
		surface:   s,
		validator: NewValidator(opts.Rules),
		presenter: NewPresenter(s, opts.Scheduler, opts.Presenter),
		opts:      opts,
		machine:   m,
	}, nil
}

// OnTransition registers f to be called after every state change.  f runs
// without the controller lock held.
func (c *Controller) OnTransition(f func(Transition)) {
	c.mu.Lock()
	c.observers = append(c.observers, f)
	c.mu.Unlock()
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.state()
}

// Presenter exposes the notification presenter, e.g. for hosts that show
// their own messages.
func (c *Controller) Presenter() *Presenter { return c.presenter }

// -----------------------------------------------------------------------------
// Field-level validation
// -----------------------------------------------------------------------------

// ValidateField checks f and updates the surface: on success the annotation
// is cleared and the field marked valid, on failure exactly one annotation is
// rendered, replacing any previous one.  After Dispose the result is still
// computed but the surface is left alone.
func (c *Controller) ValidateField(f FormField) ValidationResult {
	res := c.validator.ValidateField(f)
	if !c.isDisposed() {
		c.present(f.Name, res)
	}
	return res
}

func (c *Controller) isDisposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *Controller) present(n FieldName, res ValidationResult) {
	if res.Valid {
		c.surface.ClearFieldError(n)
		c.surface.MarkFieldValid(n)
		return
	}
	c.surface.ShowFieldError(n, res.Message)
	metrics.ValidationFailuresTotal.WithLabelValues(string(n)).Inc()
}

// Blur handles focus leaving field n.  The field is always validated.
func (c *Controller) Blur(n FieldName) ValidationResult {
	return c.ValidateField(FormField{Name: n, Value: c.surface.FieldValue(n)})
}

// Input handles an edit of field n.  The field is re-validated only when it is
// currently marked invalid, so errors clear as the user types a fix.
func (c *Controller) Input(n FieldName, value string) {
	if c.isDisposed() {
		return
	}
	c.surface.SetFieldValue(n, value)
	if c.surface.FieldValidity(n) == Invalid {
		c.ValidateField(FormField{Name: n, Value: value})
	}
}

// -----------------------------------------------------------------------------
// Form-level validation
// -----------------------------------------------------------------------------

// ValidateForm clears every annotation, then renders one for each failing
// field.  All four fields are checked even when earlier ones fail.  After
// Dispose the surface is left alone.
func (c *Controller) ValidateForm(s Snapshot) bool {
	if c.isDisposed() {
		return c.validator.ValidateForm(s)
	}
	return len(c.checkAndPresent(s)) == 0
}

func (c *Controller) checkAndPresent(s Snapshot) []FieldError {
	c.surface.ClearAllErrors()
	errs := c.validator.CheckForm(s)
	for _, fe := range errs {
		c.surface.ShowFieldError(fe.Name, fe.Message)
		metrics.ValidationFailuresTotal.WithLabelValues(string(fe.Name)).Inc()
	}
	return errs
}

// -----------------------------------------------------------------------------
// Submission lifecycle
// -----------------------------------------------------------------------------

// SubmitForm captures the current field values and submits them.
func (c *Controller) SubmitForm(ctx context.Context) (*Task, error) {
	return c.Submit(ctx, Snapshot{
		Name:    c.surface.FieldValue(NameField),
		Email:   c.surface.FieldValue(EmailField),
		Subject: c.surface.FieldValue(SubjectField),
		Message: c.surface.FieldValue(MessageField),
	})
}

// Submit validates s and, when valid, starts delivery.  It returns ErrBusy
// while a submission is in flight, a *ValidationError (matching ErrInvalid)
// when s fails validation, and ErrDisposed after Dispose.
//
// Delivery runs under ctx plus the configured timeout, so cancelling ctx
// (e.g. the user navigating away) aborts it.  The returned Task reports
// completion.
func (c *Controller) Submit(ctx context.Context, s Snapshot) (*Task, error) {
	log := logger.FromContext(ctx)

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil, ErrDisposed
	}
	if st := c.machine.state(); st != Idle {
		c.mu.Unlock()
		log.Debugw("submit rejected", "state", st)
		return nil, ErrBusy
	}

	if errs := c.checkAndPresent(s); len(errs) > 0 {
		c.mu.Unlock()
		return nil, &ValidationError{Fields: errs}
	}

	tr, err := c.sendLocked(eventSubmit)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	original, _ := c.surface.SubmitControl()
	c.surface.SetSubmitControl(c.opts.SendingLabel, false)

	dctx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
	task := newTask(cancel)
	c.task = task
	observers := c.observers
	c.mu.Unlock()

	notify(observers, tr)
	log.Infow("contact submission started", "message_len", len(s.Message))

	go c.deliver(dctx, log, task, s, original, time.Now())
	return task, nil
}

func (c *Controller) deliver(ctx context.Context, log *zap.SugaredLogger, task *Task, s Snapshot, original string, start time.Time) {
	err := c.opts.Backend.Deliver(ctx, s)
	if err == nil && ctx.Err() != nil {
		// Backend ignored cancellation; the deadline still wins.
		err = ctx.Err()
	}
	task.cancel()
	metrics.SubmissionDuration.Observe(time.Since(start).Seconds())

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		task.finish(errors.Join(ErrDisposed, err))
		return
	}

	var trs []Transition
	if err == nil {
		trs = c.succeedLocked(original)
		metrics.SubmissionsTotal.WithLabelValues("success").Inc()
		log.Infow("contact submission delivered", "elapsed", time.Since(start), "transitions", c.machine.transitions())
	} else {
		trs = c.failLocked(original)
		metrics.SubmissionsTotal.WithLabelValues(outcome(err)).Inc()
		log.Warnw("contact submission failed", "err", err, "elapsed", time.Since(start))
	}
	c.task = nil
	observers := c.observers
	c.mu.Unlock()

	notify(observers, trs...)
	task.finish(err)
}

// succeedLocked runs the success path.  Requires c.mu.
func (c *Controller) succeedLocked(original string) []Transition {
	var trs []Transition
	if tr, err := c.sendLocked(eventSucceed); err == nil {
		trs = append(trs, tr)
	}
	c.presenter.Show(KindSuccess, c.opts.SuccessTitle, c.opts.SuccessBody)
	c.surface.ResetFields()
	c.surface.ClearAllErrors()
	c.surface.SetSubmitControl(original, true)
	if tr, err := c.sendLocked(eventReset); err == nil {
		trs = append(trs, tr)
	}
	return trs
}

// failLocked runs the failure path.  Field values are kept.  Requires c.mu.
func (c *Controller) failLocked(original string) []Transition {
	var trs []Transition
	if tr, err := c.sendLocked(eventFail); err == nil {
		trs = append(trs, tr)
	}
	c.presenter.Show(KindError, c.opts.FailureTitle, c.opts.FailureBody)
	c.surface.SetSubmitControl(original, true)
	if tr, err := c.sendLocked(eventReset); err == nil {
		trs = append(trs, tr)
	}
	return trs
}

func (c *Controller) sendLocked(ev eventType) (Transition, error) {
	from, to, err := c.machine.send(ev)
	if err != nil {
		zap.S().Errorw("submission machine", "err", err)
		return Transition{}, err
	}
	return Transition{From: from, To: to}, nil
}

func notify(observers []func(Transition), trs ...Transition) {
	for _, tr := range trs {
		for _, f := range observers {
			f(tr)
		}
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Dispose cancels any in-flight delivery, stops every notification timer, and
// stops the state machine.  Later calls return ErrDisposed.  Idempotent.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	task := c.task
	c.task = nil
	c.machine.stop()
	c.mu.Unlock()

	if task != nil {
		task.Cancel()
	}
	c.presenter.Dispose()
}
