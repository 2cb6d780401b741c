// internal/model/session.go
package model

import (
	"time"

	"github.com/google/uuid"

	"minitel-service/pkg/driver"
)

// SessionStatus represents the lifecycle state of a terminal session
type SessionStatus string

const (
	SessionStatusConnecting SessionStatus = "CONNECTING"
	SessionStatusReady      SessionStatus = "READY"
	SessionStatusFailed     SessionStatus = "FAILED"
	SessionStatusClosed     SessionStatus = "CLOSED"
)

// TerminalSession represents one lifetime of the physical terminal link,
// from the connect request to the disconnect. The service holds at most
// one session that is not closed or failed.
type TerminalSession struct {
	ID       uuid.UUID           `json:"id"`
	Settings driver.LinkSettings `json:"settings"`
	Status   SessionStatus       `json:"status"`

	// Terminal and Speed are filled once identification succeeded.
	Terminal *driver.TerminalInfo `json:"terminal,omitempty"`
	Speed    int                  `json:"speed,omitempty"`

	// EchoDisabled reports whether the terminal acknowledged the local
	// echo handshake. EchoDegraded is set when the handshake was
	// requested but went unacknowledged; the session stays usable but
	// typed characters appear twice.
	EchoDisabled bool `json:"echo_disabled"`
	EchoDegraded bool `json:"echo_degraded,omitempty"`

	// SpeedDegraded is set when the terminal supported a faster speed
	// but the upgrade did not take effect.
	SpeedDegraded bool `json:"speed_degraded,omitempty"`

	OpenedAt  time.Time  `json:"opened_at"`
	ReadyAt   *time.Time `json:"ready_at,omitempty"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// NewSession creates a connecting session for the given link settings
func NewSession(settings driver.LinkSettings) *TerminalSession {
	return &TerminalSession{
		ID:       uuid.New(),
		Settings: settings,
		Status:   SessionStatusConnecting,
		OpenedAt: time.Now(),
	}
}

// IsActive checks if the session still owns the physical link
func (s *TerminalSession) IsActive() bool {
	return s.Status == SessionStatusConnecting || s.Status == SessionStatusReady
}

// Uptime returns how long the session has been open
func (s *TerminalSession) Uptime() time.Duration {
	if s.ClosedAt != nil {
		return s.ClosedAt.Sub(s.OpenedAt)
	}
	return time.Since(s.OpenedAt)
}
