// pkg/driver/interfaces.go
package driver

import (
	"context"
)

// TerminalDriver is the public surface of the videotex terminal driver.
// One driver instance manages exactly one physical link; none of the
// screen or output operations are accepted before Connect has reached
// the ready state.
type TerminalDriver interface {
	// Connection management
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	State() LinkState

	// Terminal information, valid once identification succeeded
	Info() (*TerminalInfo, error)
	Speed() int

	// Fixed command sends
	Clear(ctx context.Context) error
	Home(ctx context.Context) error
	Beep(ctx context.Context) error
	NewLine(ctx context.Context) error
	ShowCursor(ctx context.Context) error
	HideCursor(ctx context.Context) error

	// DisableLocalEcho runs the routing handshake. The boolean reports
	// whether the terminal acknowledged; a missing acknowledgment is
	// tolerated and leaves the link usable with local echo still on.
	DisableLocalEcho(ctx context.Context) (bool, error)

	// Output operations. MoveCursor resets the active display attributes
	// as a protocol side effect, so formatting must be reasserted after
	// every cursor move.
	MoveCursor(ctx context.Context, row, col int) error
	WriteText(ctx context.Context, text string) error
	WriteRepeated(ctx context.Context, char rune, count int) error
	SetFormat(ctx context.Context, name string) error
	PrintAt(ctx context.Context, row, col int, text string) error

	// ValidFormats lists the symbolic names accepted by SetFormat.
	ValidFormats() []string

	// OnData registers the single application callback invoked with each
	// framed input event that no pending reply wait consumed. Passing nil
	// removes the callback.
	OnData(handler func(event []byte))
}
