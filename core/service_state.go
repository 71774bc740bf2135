package core

// ServiceState is the activation state of a station, a route edge, or a
// whole line. The ordering matters: lower values are "more open", and the
// derived line state is the best state among the line's stations.
type ServiceState int

const (
	// StateNever marks topology that does not exist yet. It is excluded
	// from rendering and layout.
	StateNever ServiceState = iota

	// StateOpen marks active topology.
	StateOpen

	// StateSuspended marks topology that is temporarily inactive but
	// still visible, including stations reserved by a deferred opening.
	StateSuspended

	// StateClosed marks permanently retired topology, excluded from
	// rendering from its closure day onward.
	StateClosed
)

// String returns the lowercase state name.
func (s ServiceState) String() string {
	switch s {
	case StateNever:
		return "never"
	case StateOpen:
		return "open"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Visible reports whether the state participates in rendering and layout.
func (s ServiceState) Visible() bool {
	return s == StateOpen || s == StateSuspended
}
