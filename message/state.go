package message

// State is the lifecycle stage of a Message as it moves through a graph.
//
// Only Completed and Failed are terminal; once a Message reaches one of
// those it never transitions again.
type State string

const (
	Ready     State = "READY"
	Running   State = "RUNNING"
	Waiting   State = "WAITING"
	Completed State = "COMPLETED"
	Failed    State = "FAILED"
)

// Terminal reports whether the state accepts no further transitions.
func (s State) Terminal() bool {
	return s == Completed || s == Failed
}

// validTransitions encodes READY -> RUNNING -> {WAITING -> RUNNING}* -> {COMPLETED|FAILED}.
var validTransitions = map[State]map[State]bool{
	Ready:     {Running: true},
	Running:   {Waiting: true, Completed: true, Failed: true, Running: true},
	Waiting:   {Running: true, Failed: true},
	Completed: {},
	Failed:    {},
}

// CanTransitionTo reports whether moving from s to next is legal under the
// state machine in spec §3. A state may also "transition" to itself only
// where the table above allows it (RUNNING -> RUNNING, used by nodes that
// re-enter the runner without changing externally visible state).
func (s State) CanTransitionTo(next State) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	return allowed[next]
}
