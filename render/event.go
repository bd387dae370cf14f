package render

// EventKind identifies a render-to-control message.
type EventKind uint8

const (
	// EventEnded reports that a source finished playing. It is delivered at
	// most once per node.
	EventEnded EventKind = iota + 1
	// EventNodeRemoved reports that a node left the arena and its id may be
	// reused.
	EventNodeRemoved
	// EventError carries an error raised while applying a command or running
	// a processor.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventEnded:
		return "ended"
	case EventNodeRemoved:
		return "node-removed"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

func (k EventKind) bit() uint8 { return 1 << k }

// Event is a render-to-control message.
type Event struct {
	Kind EventKind
	Node NodeID
	// Frame is the first frame of the quantum in which the event was raised.
	Frame int64
	Err   error
}
