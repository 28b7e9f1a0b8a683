package domain

// SystemState is the lifecycle state of a process as seen by the change gate.
// Transitions only ever move forward: STARTUP to READY, STARTUP or READY to
// SHUTDOWN. SHUTDOWN is terminal.
type SystemState int32

const (
	StateStartup SystemState = iota
	StateReady
	StateShutdown
)

func (s SystemState) String() string {
	switch s {
	case StateStartup:
		return "startup"
	case StateReady:
		return "ready"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// AllowedTransitions returns the states reachable from s.
func (s SystemState) AllowedTransitions() []SystemState {
	switch s {
	case StateStartup:
		return []SystemState{StateReady, StateShutdown}
	case StateReady:
		return []SystemState{StateShutdown}
	default:
		return nil
	}
}

// CanTransitionTo reports whether the transition s -> to is legal.
func (s SystemState) CanTransitionTo(to SystemState) bool {
	for _, allowed := range s.AllowedTransitions() {
		if allowed == to {
			return true
		}
	}
	return false
}
