// pkg/driver/types.go
package driver

import "fmt"

// Core data structures

// LinkKind selects the byte pipe used to reach the terminal.
type LinkKind string

const (
	// LinkSerial is a local serial port (direct or USB adapter).
	LinkSerial LinkKind = "serial"
	// LinkTCP is a raw ser2net-style bridge; the remote end fixes the
	// line parameters, so speed negotiation runs in fixed mode.
	LinkTCP LinkKind = "tcp"
)

// SpeedAuto requests automatic speed detection across the candidate
// speeds instead of a fixed value.
const SpeedAuto = 0

// LinkSettings is the immutable link configuration a driver is built
// with. Data bits (7), parity (even) and stop bits (1) are fixed by the
// protocol and not configurable.
type LinkSettings struct {
	Kind         LinkKind `json:"kind"`
	Port         string   `json:"port,omitempty"`     // serial device path
	Host         string   `json:"host,omitempty"`     // tcp bridge host
	TCPPort      int      `json:"tcp_port,omitempty"` // tcp bridge port
	Speed        int      `json:"speed"`              // SpeedAuto or a candidate value
	AllowUpgrade bool     `json:"allow_upgrade"`
}

// IsAuto reports whether the settings request automatic speed detection.
func (s LinkSettings) IsAuto() bool {
	return s.Speed == SpeedAuto
}

// Address returns the human-readable link endpoint.
func (s LinkSettings) Address() string {
	if s.Kind == LinkTCP {
		return fmt.Sprintf("%s:%d", s.Host, s.TCPPort)
	}
	return s.Port
}

// LinkState tracks the driver through the connect sequence.
type LinkState string

const (
	StateIdle       LinkState = "IDLE"
	StateProbing    LinkState = "PROBING"
	StateIdentified LinkState = "IDENTIFIED"
	StateUpgrading  LinkState = "UPGRADING"
	StateReopened   LinkState = "REOPENED"
	StateReady      LinkState = "READY"
	StateFailed     LinkState = "FAILED"
)

// TerminalInfo describes the identified terminal. It is created once per
// successful identification and never mutated afterwards.
type TerminalInfo struct {
	Name      string `json:"name"`
	Maker     string `json:"maker"`
	MakerCode byte   `json:"maker_code"`
	ModelCode byte   `json:"model_code"`
	Version   string `json:"version"`
	MaxSpeed  int    `json:"max_speed"`
	Raw       []byte `json:"raw"`
}

// Code returns the two-character manufacturer+model identification.
func (t *TerminalInfo) Code() string {
	return string([]byte{t.MakerCode, t.ModelCode})
}
