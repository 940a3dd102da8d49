package streamclient

// State is the transport's connection lifecycle state
type State string

const (
	// StateDisconnected is the initial state and the result of explicit teardown.
	StateDisconnected State = "disconnected"
	// StateConnecting means a dial is in progress.
	StateConnecting State = "connecting"
	// StateAuthenticated means the handshake succeeded.
	StateAuthenticated State = "authenticated"
	// StateSubscribing means the subscription set is being re-requested.
	StateSubscribing State = "subscribing"
	// StateActive means events are flowing.
	StateActive State = "active"
	// StateReconnecting means the transport dropped and backoff is running.
	StateReconnecting State = "reconnecting"
	// StateOffline means backoff attempts are exhausted; only an explicit
	// Connect resumes the stream.
	StateOffline State = "offline"
)

// validTransitions defines allowed lifecycle transitions.
// Key is current state, value is the set of allowed next states.
// Explicit teardown to disconnected is allowed from every state.
var validTransitions = map[State][]State{
	StateDisconnected:  {StateConnecting},
	StateConnecting:    {StateAuthenticated, StateReconnecting, StateDisconnected},
	StateAuthenticated: {StateSubscribing, StateReconnecting, StateDisconnected},
	StateSubscribing:   {StateActive, StateReconnecting, StateDisconnected},
	StateActive:        {StateReconnecting, StateDisconnected},
	StateReconnecting:  {StateConnecting, StateOffline, StateDisconnected},
	StateOffline:       {StateConnecting, StateDisconnected},
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition to the target state is allowed
func (s State) CanTransitionTo(target State) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, next := range allowed {
		if next == target {
			return true
		}
	}
	return false
}

// Live reports whether events can currently arrive
func (s State) Live() bool {
	return s == StateActive
}
