package domain

// TopologyEventType enumerates the lifecycle of a topology change as
// delivered to listeners.
type TopologyEventType int

const (
	// EventInit is delivered once to a newly registered listener, carrying
	// the current view.
	EventInit TopologyEventType = iota
	// EventChanging announces that the topology is about to change; the new
	// view is not yet known.
	EventChanging
	// EventChanged announces that a change completed; carries old and new
	// views.
	EventChanged
)

func (t TopologyEventType) String() string {
	switch t {
	case EventInit:
		return "init"
	case EventChanging:
		return "changing"
	case EventChanged:
		return "changed"
	default:
		return "unknown"
	}
}

type TopologyEvent struct {
	Type    TopologyEventType
	OldView *TopologyView
	NewView *TopologyView
}

func NewInitEvent(view *TopologyView) TopologyEvent {
	return TopologyEvent{Type: EventInit, NewView: view}
}

func NewChangingEvent(oldView *TopologyView) TopologyEvent {
	return TopologyEvent{Type: EventChanging, OldView: oldView}
}

func NewChangedEvent(oldView, newView *TopologyView) TopologyEvent {
	return TopologyEvent{Type: EventChanged, OldView: oldView, NewView: newView}
}
