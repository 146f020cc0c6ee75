package session

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Activity states. Untyped so they convert to statekit.StateID.
const (
	StateIdle     = "idle"
	StateInFlight = "in_flight"
)

const (
	eventStart  = "start"
	eventSettle = "settle"
)

// activity tracks one asynchronous action (analysis or chat) through
// idle -> in_flight -> idle. Callers hold the controller lock.
type activity struct {
	name        string
	interpreter *statekit.Interpreter[activityContext]
}

type activityContext struct {
	Name string
}

func newActivity(name string) (*activity, error) {
	builder := statekit.NewMachine[activityContext](name + "-activity").
		WithInitial(StateIdle).
		WithContext(activityContext{Name: name})

	builder.State(StateIdle).
		On(eventStart).Target(StateInFlight).
		Done()

	builder.State(StateInFlight).
		On(eventSettle).Target(StateIdle).
		Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("session: build %s activity: %w", name, err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &activity{name: name, interpreter: interp}, nil
}

func (a *activity) State() string {
	return string(a.interpreter.State().Value)
}

func (a *activity) Busy() bool { return a.State() == StateInFlight }

// Begin moves idle -> in_flight and reports whether it did.
// A second Begin while in flight is rejected.
func (a *activity) Begin() bool {
	if a.Busy() {
		return false
	}
	a.interpreter.Send(statekit.Event{Type: eventStart})
	return a.Busy()
}

// Settle returns to idle after success or failure.
func (a *activity) Settle() {
	a.interpreter.Send(statekit.Event{Type: eventSettle})
}
