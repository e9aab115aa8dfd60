package episode

// State is the lifecycle state of a Machine.
type State int

const (
	Initialized State = iota
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}
