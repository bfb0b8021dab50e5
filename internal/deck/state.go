package deck

// State is the lifecycle state of a key binding.
type State int

// Binding states.
const (
	// StateUnbound - No tile exists, or its plugin or blueprint could not
	// be resolved.
	StateUnbound State = iota

	// StateInstantiated - The tile exists with settings bound.
	StateInstantiated

	// StateInitialized - Init ran, successfully or not.
	StateInitialized

	// StateActive - Change notifications reach the deck.
	StateActive

	// StateDeinitialized - The scope is canceled and DeInit ran.
	StateDeinitialized
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateInstantiated:
		return "instantiated"
	case StateInitialized:
		return "initialized"
	case StateActive:
		return "active"
	case StateDeinitialized:
		return "deinitialized"
	default:
		return "unknown"
	}
}

// Live reports whether the binding still owns a running tile.
func (s State) Live() bool {
	return s == StateInitialized || s == StateActive
}
