package resource

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// Dropper is implemented by values that release something when removed.
type Dropper interface {
	Drop()
}

// Event types for lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	}
	return "unknown"
}

// Event represents a lifecycle event of a table entry.
type Event[T any] struct {
	Value  T
	Handle Handle
	Type   EventType
}

// Observer receives notifications about lifecycle events.
type Observer[T any] interface {
	OnResourceEvent(Event[T])
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc[T any] func(Event[T])

func (f ObserverFunc[T]) OnResourceEvent(e Event[T]) { f(e) }
