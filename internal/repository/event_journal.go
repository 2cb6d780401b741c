// internal/repository/event_journal.go
package repository

import (
	"sync"

	"go.uber.org/zap"

	"minitel-service/internal/model"
)

// eventJournal implements EventJournal as a fixed-size ring buffer
type eventJournal struct {
	mu     sync.RWMutex
	buf    []*model.SessionEvent
	next   int // next write position
	size   int // number of valid entries
	logger *zap.Logger
}

// NewEventJournal creates a journal retaining at most capacity events
func NewEventJournal(capacity int, logger *zap.Logger) EventJournal {
	if capacity < 1 {
		capacity = 1
	}
	return &eventJournal{
		buf:    make([]*model.SessionEvent, capacity),
		logger: logger,
	}
}

// Append records an event, evicting the oldest one when full
func (j *eventJournal) Append(event *model.SessionEvent) {
	if event == nil {
		return
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.buf[j.next] = event
	j.next = (j.next + 1) % len(j.buf)
	if j.size < len(j.buf) {
		j.size++
	}
}

// Recent returns up to limit retained events, newest first
func (j *eventJournal) Recent(limit int) []*model.SessionEvent {
	j.mu.RLock()
	defer j.mu.RUnlock()

	n := j.size
	if limit > 0 && limit < n {
		n = limit
	}

	events := make([]*model.SessionEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (j.next - 1 - i + len(j.buf)) % len(j.buf)
		events = append(events, j.buf[idx])
	}
	return events
}

// Size returns the number of retained events
func (j *eventJournal) Size() int {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.size
}

// Clear drops every retained event
func (j *eventJournal) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()

	for i := range j.buf {
		j.buf[i] = nil
	}
	j.next = 0
	j.size = 0

	j.logger.Debug("Event journal cleared")
}
