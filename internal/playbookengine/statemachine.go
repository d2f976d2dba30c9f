package playbookengine

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Per-step lifecycle events and states (spec §4.4: "PENDING -> RUNNING ->
// (OK | FAIL | TIMEOUT | DENIED)"). Authorization is decided by the
// engine before the machine is driven, so DENIED is reachable directly
// from PENDING without ever entering RUNNING.
const (
	stepEventAuthorize statekit.EventType = "AUTHORIZE"
	stepEventDeny      statekit.EventType = "DENY"
	stepEventSucceed   statekit.EventType = "SUCCEED"
	stepEventFail      statekit.EventType = "FAIL"
	stepEventTimeout   statekit.EventType = "TIMEOUT"
)

var (
	stepStateIDPending statekit.StateID = statekit.StateID(StepPending)
	stepStateIDRunning statekit.StateID = statekit.StateID(StepRunning)
	stepStateIDOK      statekit.StateID = statekit.StateID(StepOK)
	stepStateIDFail    statekit.StateID = statekit.StateID(StepFail)
	stepStateIDTimeout statekit.StateID = statekit.StateID(StepTimeout)
	stepStateIDDenied  statekit.StateID = statekit.StateID(StepDenied)
)

// StepStatus is a step run's lifecycle state.
type StepStatus string

const (
	StepPending StepStatus = "PENDING"
	StepRunning StepStatus = "RUNNING"
	StepOK      StepStatus = "OK"
	StepFail    StepStatus = "FAIL"
	StepTimeout StepStatus = "TIMEOUT"
	StepDenied  StepStatus = "DENIED"
)

// stepMachine wraps a Statekit interpreter driving one step's lifecycle.
type stepMachine struct {
	interpreter *statekit.Interpreter[struct{}]
}

func newStepMachine() (*stepMachine, error) {
	machine, err := statekit.NewMachine[struct{}]("playbook-step").
		WithInitial(stepStateIDPending).
		State(stepStateIDPending).
		On(stepEventAuthorize).Target(stepStateIDRunning).
		On(stepEventDeny).Target(stepStateIDDenied).
		Done().
		State(stepStateIDRunning).
		On(stepEventSucceed).Target(stepStateIDOK).
		On(stepEventFail).Target(stepStateIDFail).
		On(stepEventTimeout).Target(stepStateIDTimeout).
		Done().
		State(stepStateIDOK).
		Final().
		Done().
		State(stepStateIDFail).
		Final().
		Done().
		State(stepStateIDTimeout).
		Final().
		Done().
		State(stepStateIDDenied).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build step state machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &stepMachine{interpreter: interp}, nil
}

func (m *stepMachine) send(event statekit.EventType) StepStatus {
	m.interpreter.Send(statekit.Event{Type: event})
	return StepStatus(m.interpreter.State().Value)
}

func (m *stepMachine) status() StepStatus {
	return StepStatus(m.interpreter.State().Value)
}
