package playback

// State is a playback session's position in its lifecycle.
type State int

const (
	Idle State = iota
	Playing
	Looping
	Stopped
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Looping:
		return "looping"
	case Stopped:
		return "stopped"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == Stopped || s == Cancelled
}

var transitions = map[State][]State{
	Idle:    {Playing, Stopped},
	Playing: {Looping, Stopped, Cancelled},
	Looping: {Playing, Stopped, Cancelled},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Listener observes state transitions. It runs on the playback goroutine
// and must not block.
type Listener func(from, to State)
