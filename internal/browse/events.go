package browse

// EventKind tells listeners what changed
type EventKind int

const (
	EventViewUpdated EventKind = iota
	EventCountsUpdated
	EventWarning
)

func (k EventKind) String() string {
	switch k {
	case EventCountsUpdated:
		return "counts"
	case EventWarning:
		return "warning"
	default:
		return "view"
	}
}

// Event is delivered to the session listener outside the session lock.
// Listeners may call back into the session but must not block for long.
type Event struct {
	Kind EventKind
	View View
	Err  error
}

// Listener receives session events
type Listener func(Event)
