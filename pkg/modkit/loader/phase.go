package loader

// Phase is the loader state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseInitializing
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseInitializing:
		return "initializing"
	default:
		return "unknown"
	}
}
