package runtime

// State is the orchestrator's position in a validation run.
type State int

// States. An item moves Idle → Prepared → Running ⇄ Draining → Completed,
// or to Failed from any state before Completed.
const (
	StateIdle State = iota
	StatePrepared
	StateRunning
	StateDraining
	StateCompleted
	StateFailed
)

var stateNames = [...]string{
	StateIdle:      "idle",
	StatePrepared:  "prepared",
	StateRunning:   "running",
	StateDraining:  "draining",
	StateCompleted: "completed",
	StateFailed:    "failed",
}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// validTransitions lists the states reachable from each state.
var validTransitions = map[State][]State{
	StateIdle:      {StatePrepared, StateFailed},
	StatePrepared:  {StateRunning, StateFailed},
	StateRunning:   {StateDraining, StateCompleted, StateFailed},
	StateDraining:  {StateRunning, StateCompleted, StateFailed},
	StateCompleted: {StateIdle},
	StateFailed:    {StateIdle},
}

// canTransition reports whether from → to is a legal transition.
func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
