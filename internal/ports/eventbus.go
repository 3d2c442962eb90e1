package ports

import "context"

// EventKind identifies emitted game events for bus dispatch.
type EventKind string

// Event is a state-transition notification. Payload must marshal to JSON;
// empty Recipients means broadcast to the whole room topic.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string
}

// EventBusPort fans committed events out to the room topic. Delivery is
// at-least-once; publish failures never roll back committed state.
type EventBusPort interface {
	Publish(ctx context.Context, code string, events []Event) error
}
