// internal/repository/interfaces.go
package repository

import (
	"minitel-service/internal/model"
)

// EventJournal keeps the recent session events for the REST and
// WebSocket consumers. Implementations are bounded: once full, the
// oldest entries fall off. Nothing is persisted across restarts.
type EventJournal interface {
	// Append records an event, evicting the oldest one when full.
	Append(event *model.SessionEvent)

	// Recent returns up to limit retained events, newest first.
	// A non-positive limit returns everything retained.
	Recent(limit int) []*model.SessionEvent

	// Size returns the number of retained events.
	Size() int

	// Clear drops every retained event.
	Clear()
}
