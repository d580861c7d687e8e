package module

import "time"

// EventKind names a step in a record's or group's life.
type EventKind string

const (
	EventCreated         EventKind = "created"
	EventCandidateMiss   EventKind = "candidate-miss"
	EventLoaded          EventKind = "loaded"
	EventReady           EventKind = "ready"
	EventFailed          EventKind = "failed"
	EventExecutionFailed EventKind = "execution-failed"
	EventGroupDrained    EventKind = "group-drained"
)

// Event is emitted by the loader and cascade as work progresses.
type Event struct {
	Kind     EventKind
	ID       string
	Key      string
	Location string
	// Data is set on loaded/ready events for data-only modules.
	Data bool
	Err  error
	// Count carries the number of entries for group-drained events.
	Count int
	Time  time.Time
}

// Observer receives events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to every non-nil observer in order.
type Observers []Observer

func (o Observers) Observe(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	for _, obs := range o {
		if obs != nil {
			obs.Observe(e)
		}
	}
}
