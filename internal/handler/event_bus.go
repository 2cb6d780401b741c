// internal/handler/event_bus.go
package handler

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"minitel-service/internal/model"
	"minitel-service/internal/repository"
)

// EventBus distributes session events to the journal and to every
// subscribed WebSocket client
type EventBus struct {
	subscribers map[uuid.UUID]chan *model.SessionEvent
	events      chan *model.SessionEvent
	journal     repository.EventJournal
	mutex       sync.RWMutex
	closed      bool
	logger      *zap.Logger
}

// NewEventBus creates a new event bus backed by the given journal
func NewEventBus(journal repository.EventJournal, logger *zap.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[uuid.UUID]chan *model.SessionEvent),
		events:      make(chan *model.SessionEvent, 256),
		journal:     journal,
		logger:      logger,
	}
}

// Start drains the event channel until Stop is called. Run it on its
// own goroutine.
func (eb *EventBus) Start() {
	for event := range eb.events {
		eb.distribute(event)
	}
}

// Stop closes the bus; later Publish calls are dropped.
func (eb *EventBus) Stop() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	close(eb.events)
}

// Publish queues an event for distribution without blocking the caller
func (eb *EventBus) Publish(event *model.SessionEvent) {
	if event == nil {
		return
	}

	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	if eb.closed {
		return
	}

	select {
	case eb.events <- event:
	default:
		eb.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", string(event.EventType)),
		)
	}
}

// Subscribe registers a consumer for every published event and returns
// its id and receive channel
func (eb *EventBus) Subscribe() (uuid.UUID, <-chan *model.SessionEvent) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	id := uuid.New()
	subscriber := make(chan *model.SessionEvent, 64)
	eb.subscribers[id] = subscriber

	eb.logger.Debug("Event subscriber registered", zap.String("subscriber_id", id.String()))
	return id, subscriber
}

// Unsubscribe removes a consumer and closes its channel
func (eb *EventBus) Unsubscribe(id uuid.UUID) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if subscriber, exists := eb.subscribers[id]; exists {
		delete(eb.subscribers, id)
		close(subscriber)
	}
}

// distribute appends the event to the journal and fans it out
func (eb *EventBus) distribute(event *model.SessionEvent) {
	eb.journal.Append(event)

	eb.mutex.RLock()
	defer eb.mutex.RUnlock()

	for id, subscriber := range eb.subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber is slow, skip
			eb.logger.Debug("Subscriber lagging, event skipped",
				zap.String("subscriber_id", id.String()),
				zap.String("event_type", string(event.EventType)),
			)
		}
	}
}
