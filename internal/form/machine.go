// internal/form/machine.go
//
// Forms subsystem: submission state machine.
//
// Context
//   Idle → Submitting → Succeeded → Idle on the happy path.  A transport
//   failure takes Submitting → Failed → Idle instead, with field values
//   preserved.  The chart is built with statekit; this file keeps the
//   statekit types out of the rest of the package.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// State is the submission lifecycle state.
type State string

const (
	Idle       State = "idle"
	Submitting State = "submitting"
	Succeeded  State = "succeeded"
	Failed     State = "failed"
)

const (
	stateIdle       statekit.StateID = statekit.StateID(Idle)
	stateSubmitting statekit.StateID = statekit.StateID(Submitting)
	stateSucceeded  statekit.StateID = statekit.StateID(Succeeded)
	stateFailed     statekit.StateID = statekit.StateID(Failed)
)

type eventType = statekit.EventType

const (
	eventSubmit  eventType = "SUBMIT"
	eventSucceed eventType = "SUCCEED"
	eventFail    eventType = "FAIL"
	eventReset   eventType = "RESET"
)

// allowed mirrors the chart below.  send consults it first so an event the
// current state does not handle never reaches the interpreter.
var allowed = map[State]map[eventType]State{
	Idle:       {eventSubmit: Submitting},
	Submitting: {eventSucceed: Succeeded, eventFail: Failed},
	Succeeded:  {eventReset: Idle},
	Failed:     {eventReset: Idle},
}

// machineContext is the statekit extended state.  Transitions counts every
// state change since the machine started.
type machineContext struct {
	Transitions int
}

func countTransition(ctx **machineContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Transitions++
}

// submissionMachine wraps a running interpreter.  Not safe for concurrent use;
// the Controller serializes access.
type submissionMachine struct {
	interp *statekit.Interpreter[*machineContext]
	ctx    *machineContext
}

func newSubmissionMachine() (*submissionMachine, error) {
	cfg, err := statekit.NewMachine[*machineContext]("contact-submission").
		WithInitial(stateIdle).
		WithContext(&machineContext{}).
		WithAction("count", countTransition).
		State(stateIdle).
		On(eventSubmit).Target(stateSubmitting).Do("count").
		Done().
		State(stateSubmitting).
		On(eventSucceed).Target(stateSucceeded).Do("count").
		On(eventFail).Target(stateFailed).Do("count").
		Done().
		State(stateSucceeded).
		On(eventReset).Target(stateIdle).Do("count").
		Done().
		State(stateFailed).
		On(eventReset).Target(stateIdle).Do("count").
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build submission machine: %w", err)
	}

	mc := &machineContext{}
	interp := statekit.NewInterpreter(cfg)
	interp.UpdateContext(func(c **machineContext) { *c = mc })
	interp.Start()
	return &submissionMachine{interp: interp, ctx: mc}, nil
}

func (m *submissionMachine) state() State {
	return State(m.interp.State().Value)
}

// send fires ev and returns the states on both sides of the transition.
func (m *submissionMachine) send(ev eventType) (from, to State, err error) {
	from = m.state()
	want, ok := allowed[from][ev]
	if !ok {
		return from, from, fmt.Errorf("event %s not allowed in state %s", ev, from)
	}
	m.interp.Send(statekit.Event{Type: ev})
	to = m.state()
	if to != want {
		return from, to, fmt.Errorf("event %s: landed in %s, want %s", ev, to, want)
	}
	return from, to, nil
}

// transitions reports how many state changes the machine has made.
func (m *submissionMachine) transitions() int { return m.ctx.Transitions }

func (m *submissionMachine) stop() { m.interp.Stop() }
