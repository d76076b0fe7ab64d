package events

import (
	"errors"
	"fmt"
	"sync"
)

// InMemoryEventStore keeps events in memory and notifies subscribers
// synchronously, in subscription order, after the event is stored.
type InMemoryEventStore struct {
	streams     map[string][]Event
	subscribers map[string][]EventHandler
	mutex       sync.RWMutex
	allEvents   []Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{
		streams:     make(map[string][]Event),
		subscribers: make(map[string][]EventHandler),
		allEvents:   make([]Event, 0),
	}
}

var _ EventStore = (*InMemoryEventStore)(nil)

// AppendEvent stores the event and returns the joined errors of any
// subscriber that failed to handle it.
func (s *InMemoryEventStore) AppendEvent(streamID string, event Event) error {
	s.mutex.Lock()

	stored := stamped(event, streamID, len(s.streams[streamID])+1)
	s.streams[streamID] = append(s.streams[streamID], stored)
	s.allEvents = append(s.allEvents, stored)
	handlers := append([]EventHandler(nil), s.subscribers[event.Type()]...)

	s.mutex.Unlock()

	return s.notifySubscribers(handlers, stored)
}

// ReadEvents returns the events of one stream from the given version on
func (s *InMemoryEventStore) ReadEvents(streamID string, fromVersion int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	events, exists := s.streams[streamID]
	if !exists {
		return []Event{}, nil
	}

	if fromVersion < 1 {
		fromVersion = 1
	}

	if fromVersion > len(events) {
		return []Event{}, nil
	}

	return append([]Event(nil), events[fromVersion-1:]...), nil
}

// ReadAllEvents returns every stored event in append order, skipping the
// first fromPosition
func (s *InMemoryEventStore) ReadAllEvents(fromPosition int) ([]Event, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}

	if fromPosition >= len(s.allEvents) {
		return []Event{}, nil
	}

	return append([]Event(nil), s.allEvents[fromPosition:]...), nil
}

func (s *InMemoryEventStore) Subscribe(eventTypes []string, handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, eventType := range eventTypes {
		s.subscribers[eventType] = append(s.subscribers[eventType], handler)
	}

	return nil
}

func (s *InMemoryEventStore) Unsubscribe(handler EventHandler) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for eventType, handlers := range s.subscribers {
		newHandlers := make([]EventHandler, 0, len(handlers))
		for _, h := range handlers {
			if h != handler {
				newHandlers = append(newHandlers, h)
			}
		}
		s.subscribers[eventType] = newHandlers
	}

	return nil
}

// CountByType returns how many stored events have each type
func (s *InMemoryEventStore) CountByType() map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	counts := make(map[string]int)
	for _, e := range s.allEvents {
		counts[e.Type()]++
	}
	return counts
}

func (s *InMemoryEventStore) notifySubscribers(handlers []EventHandler, event Event) error {
	var errs []error
	for _, handler := range handlers {
		if !handler.CanHandle(event.Type()) {
			continue
		}
		if err := handler.Handle(event); err != nil {
			errs = append(errs, fmt.Errorf("handling event %s: %w", event.Type(), err))
		}
	}
	return errors.Join(errs...)
}
