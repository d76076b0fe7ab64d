package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is one planning fact. Streams are named after the entity they
// describe: "group/<id>", "order/<id>" or "run/<id>".
type Event interface {
	ID() string
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	// Version is the 1-based position of the event in its stream, set by
	// the store on append.
	Version() int
}

type EventHandler interface {
	Handle(event Event) error
	CanHandle(eventType string) bool
}

type EventStore interface {
	AppendEvent(streamID string, event Event) error
	ReadEvents(streamID string, fromVersion int) ([]Event, error)
	ReadAllEvents(fromPosition int) ([]Event, error)
	Subscribe(eventTypes []string, handler EventHandler) error
	Unsubscribe(handler EventHandler) error
}

type planningEvent struct {
	id      string
	kind    string
	stream  string
	payload interface{}
	at      time.Time
	version int
}

func (e planningEvent) ID() string           { return e.id }
func (e planningEvent) Type() string         { return e.kind }
func (e planningEvent) StreamID() string     { return e.stream }
func (e planningEvent) Data() interface{}    { return e.payload }
func (e planningEvent) Timestamp() time.Time { return e.at }
func (e planningEvent) Version() int         { return e.version }

// NewEvent wraps a payload in an unversioned event
func NewEvent(eventType, streamID string, data interface{}) Event {
	return planningEvent{
		id:      uuid.NewString(),
		kind:    eventType,
		stream:  streamID,
		payload: data,
		at:      time.Now().UTC(),
	}
}

// stamped copies e onto streamID at the given version
func stamped(e Event, streamID string, version int) Event {
	return planningEvent{
		id:      e.ID(),
		kind:    e.Type(),
		stream:  streamID,
		payload: e.Data(),
		at:      e.Timestamp(),
		version: version,
	}
}

// Payload returns the data of e as T
func Payload[T any](e Event) (T, bool) {
	v, ok := e.Data().(T)
	return v, ok
}

type funcHandler struct {
	types map[string]bool
	fn    func(Event) error
}

// HandlerFunc adapts a function to an EventHandler accepting every event type.
func HandlerFunc(fn func(Event) error) EventHandler {
	return &funcHandler{fn: fn}
}

// HandlerFor adapts a function to an EventHandler restricted to the given
// event types.
func HandlerFor(eventTypes []string, fn func(Event) error) EventHandler {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	return &funcHandler{types: types, fn: fn}
}

func (h *funcHandler) Handle(event Event) error {
	return h.fn(event)
}

func (h *funcHandler) CanHandle(eventType string) bool {
	return h.types == nil || h.types[eventType]
}
