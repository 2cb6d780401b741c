// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventSessionOpened  EventType = "SESSION_OPENED"
	EventSessionReady   EventType = "SESSION_READY"
	EventSessionFailed  EventType = "SESSION_FAILED"
	EventSessionClosed  EventType = "SESSION_CLOSED"
	EventSpeedUpgraded  EventType = "SPEED_UPGRADED"
	EventUpgradeDegrade EventType = "UPGRADE_DEGRADED"
	EventEchoDegraded   EventType = "ECHO_DISABLE_DEGRADED"
	EventKeyPressed     EventType = "KEY_PRESSED"
	EventInputReceived  EventType = "INPUT_RECEIVED"
)

// Event severities
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// JSONObject is a free-form event payload
type JSONObject map[string]interface{}

// SessionEvent represents an event in the life of a terminal session
type SessionEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	SessionID uuid.UUID  `json:"session_id"`
	Data      JSONObject `json:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"`
}

// NewSessionEvent builds an event stamped with a fresh id and the
// current time.
func NewSessionEvent(eventType EventType, sessionID uuid.UUID, severity string, data JSONObject) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.New(),
		EventType: eventType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now(),
		Source:    "minitel-service",
		Severity:  severity,
	}
}

// EventData structures for different event types

// SessionLifecycleEventData describes session open/ready/close events.
// Open events carry the link fields, ready events the terminal fields,
// close events the reason.
type SessionLifecycleEventData struct {
	Link     string `json:"link,omitempty"`
	Address  string `json:"address,omitempty"`
	Speed    int    `json:"speed,omitempty"`
	Terminal string `json:"terminal,omitempty"`
	Maker    string `json:"maker,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// SessionFailedEventData describes a failed connect sequence
type SessionFailedEventData struct {
	Error string `json:"error"`
}

// SpeedEventData describes the speed the link settled on relative to
// what the terminal supports
type SpeedEventData struct {
	Speed    int  `json:"speed"`
	MaxSpeed int  `json:"max_speed"`
	Applied  bool `json:"applied"`
}

// KeyPressedEventData describes a decoded function key event
type KeyPressedEventData struct {
	Key     string `json:"key"`
	KeyCode byte   `json:"key_code"`
}

// InputReceivedEventData describes a raw framed input event that was
// not a function key
type InputReceivedEventData struct {
	Hex  string `json:"hex"`
	Text string `json:"text,omitempty"`
	Size int    `json:"size"`
}
