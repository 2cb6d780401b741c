// internal/driver/minitel/driver.go
package minitel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"minitel-service/internal/transport"
	"minitel-service/internal/utils"
	"minitel-service/pkg/driver"
)

// echoAckTimeout bounds the wait for the PRO3 routing answer. Keyboard
// echo disabling is tolerated to fail, so the wait stays short.
const echoAckTimeout = time.Second

// Driver implements driver.TerminalDriver for Minitel terminals on an
// asynchronous character link
type Driver struct {
	settings driver.LinkSettings
	conn     transport.Connection
	awaiter  *replyAwaiter
	framer   *inputFramer
	logger   *utils.TerminalLogger

	mutex  sync.RWMutex // guards state, speed, info
	sendMu sync.Mutex   // keeps multi-byte sequences contiguous on the wire

	state driver.LinkState
	speed int
	info  *driver.TerminalInfo
}

// New creates a Minitel driver bound to a transport connection. The
// connection must not be open yet; Connect opens it during negotiation.
func New(settings driver.LinkSettings, conn transport.Connection, logger *zap.Logger) *Driver {
	terminalLogger := utils.NewTerminalLogger(logger, string(settings.Kind), settings.Address())

	awaiter := newReplyAwaiter(terminalLogger.Logger)
	framer := newInputFramer(defaultInputWindow, awaiter, terminalLogger.Logger)
	conn.Attach(framer.feed)

	return &Driver{
		settings: settings,
		conn:     conn,
		awaiter:  awaiter,
		framer:   framer,
		logger:   terminalLogger,
		state:    driver.StateIdle,
	}
}

// Connect negotiates the link speed and identifies the terminal
func (d *Driver) Connect(ctx context.Context) error {
	d.mutex.Lock()
	switch d.state {
	case driver.StateReady:
		d.mutex.Unlock()
		return ErrAlreadyConnected
	case driver.StateIdle, driver.StateFailed:
		d.state = driver.StateProbing
		d.mutex.Unlock()
	default:
		d.mutex.Unlock()
		return fmt.Errorf("%w: negotiation in progress", ErrAlreadyConnected)
	}

	if err := d.negotiate(ctx); err != nil {
		if closeErr := d.conn.Close(); closeErr != nil {
			d.logger.Warn("Failed to close link after negotiation failure", zap.Error(closeErr))
		}
		d.framer.reset()
		d.setIdentity(nil, 0)
		d.setState(driver.StateFailed)
		d.logger.LogLink("connect", false, err)
		return err
	}

	d.setState(driver.StateReady)
	d.logger.LogLink("connect", true, nil)
	return nil
}

// Disconnect closes the link. Disconnecting an idle driver is a no-op.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mutex.Lock()
	if d.state == driver.StateIdle {
		d.mutex.Unlock()
		return nil
	}
	d.state = driver.StateIdle
	d.info = nil
	d.speed = 0
	d.mutex.Unlock()

	d.framer.reset()

	if err := d.conn.Close(); err != nil {
		d.logger.LogLink("disconnect", false, err)
		return fmt.Errorf("failed to close link: %w", err)
	}

	d.logger.LogLink("disconnect", true, nil)
	return nil
}

// IsConnected reports whether the link is ready for commands
func (d *Driver) IsConnected() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.state == driver.StateReady && d.conn.IsOpen()
}

// State returns the current negotiation state
func (d *Driver) State() driver.LinkState {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.state
}

// Info returns the identity collected during negotiation
func (d *Driver) Info() (*driver.TerminalInfo, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if d.info == nil {
		return nil, ErrNotConnected
	}
	info := *d.info
	return &info, nil
}

// Speed returns the current link speed in baud, 0 when not connected
func (d *Driver) Speed() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.speed
}

// Clear wipes the addressable grid and homes the cursor. The status row
// is untouched.
func (d *Driver) Clear(ctx context.Context) error {
	return d.sendCommand(ctx, "clear", VIDEOTEX_COMMANDS.CLEAR_SCREEN)
}

// Home moves the cursor to row 1, column 1
func (d *Driver) Home(ctx context.Context) error {
	return d.sendCommand(ctx, "home", VIDEOTEX_COMMANDS.CURSOR_HOME)
}

// Beep sounds the terminal buzzer
func (d *Driver) Beep(ctx context.Context) error {
	return d.sendCommand(ctx, "beep", VIDEOTEX_COMMANDS.BEEP)
}

// NewLine moves the cursor to the start of the next row
func (d *Driver) NewLine(ctx context.Context) error {
	return d.sendCommand(ctx, "new_line", VIDEOTEX_COMMANDS.NEW_LINE)
}

// ShowCursor makes the cursor visible
func (d *Driver) ShowCursor(ctx context.Context) error {
	return d.sendCommand(ctx, "cursor_show", VIDEOTEX_COMMANDS.CURSOR_SHOW)
}

// HideCursor makes the cursor invisible
func (d *Driver) HideCursor(ctx context.Context) error {
	return d.sendCommand(ctx, "cursor_hide", VIDEOTEX_COMMANDS.CURSOR_HIDE)
}

// MoveCursor positions the cursor. Row 0 is the status row, rows 1-24
// and columns 1-40 form the grid. Moving the cursor resets active
// character attributes.
func (d *Driver) MoveCursor(ctx context.Context, row, col int) error {
	if err := d.requireReady(); err != nil {
		return err
	}

	seq, err := MoveCursorSequence(row, col)
	if err != nil {
		return err
	}

	return d.sendNamed(ctx, "move_cursor", seq)
}

// WriteText encodes and draws a string at the cursor position
func (d *Driver) WriteText(ctx context.Context, text string) error {
	if err := d.requireReady(); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	return d.sendNamed(ctx, "write_text", EncodeText(text))
}

// WriteRepeated draws one character count times using repeat compression
func (d *Driver) WriteRepeated(ctx context.Context, char rune, count int) error {
	if err := d.requireReady(); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("%w: repeat count %d must be positive", ErrValidation, count)
	}

	return d.sendNamed(ctx, "write_repeated", RepeatSequence(EncodeRune(char), count))
}

// SetFormat activates a character attribute by its symbolic name
func (d *Driver) SetFormat(ctx context.Context, name string) error {
	if err := d.requireReady(); err != nil {
		return err
	}

	seq, err := FormatSequence(name)
	if err != nil {
		return err
	}

	return d.sendNamed(ctx, "set_format", seq)
}

// PrintAt positions the cursor and draws text in a single write
func (d *Driver) PrintAt(ctx context.Context, row, col int, text string) error {
	if err := d.requireReady(); err != nil {
		return err
	}

	seq, err := MoveCursorSequence(row, col)
	if err != nil {
		return err
	}
	seq = append(seq, EncodeText(text)...)

	return d.sendNamed(ctx, "print_at", seq)
}

// ValidFormats returns the accepted format names
func (d *Driver) ValidFormats() []string {
	return ValidFormatNames()
}

// DisableLocalEcho asks the terminal to stop echoing keystrokes to its
// own screen, so the application controls everything displayed. The
// result reports whether the terminal acknowledged; older ROMs never
// answer and the link stays usable with local echo on.
func (d *Driver) DisableLocalEcho(ctx context.Context) (bool, error) {
	if err := d.requireReady(); err != nil {
		return false, err
	}

	if err := d.send(ctx, VIDEOTEX_COMMANDS.ECHO_OFF); err != nil {
		return false, fmt.Errorf("failed to send echo-off sequence: %w", err)
	}

	if _, err := d.awaiter.Await(ctx, MatcherFunc(echoAckMatcher), echoAckTimeout); err != nil {
		if errors.Is(err, ErrReplyTimeout) {
			d.logger.Warn("Echo-off not acknowledged, terminal keeps local echo")
			return false, nil
		}
		return false, err
	}

	d.logger.Info("Local echo disabled")
	return true, nil
}

// OnData installs the handler for input events no pending wait claims,
// typically keystrokes. Passing nil drops them.
func (d *Driver) OnData(handler func(event []byte)) {
	d.framer.setHandler(handler)
}

// Close releases the link for good, satisfying io.Closer for teardown
// paths. Unlike Disconnect, the driver cannot reconnect afterwards:
// straggler bytes from the closing transport are dropped.
func (d *Driver) Close() error {
	err := d.Disconnect(context.Background())
	d.framer.close()
	return err
}

// echoAckMatcher recognizes the PRO3 routing status answer
func echoAckMatcher(event []byte) bool {
	return bytes.Contains(event, VIDEOTEX_COMMANDS.ECHO_ACK)
}

// Helper methods

// requireReady rejects operations until negotiation has finished
func (d *Driver) requireReady() error {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	if d.state != driver.StateReady {
		return ErrNotConnected
	}
	return nil
}

// send writes one sequence under the send lock
func (d *Driver) send(ctx context.Context, data []byte) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	return d.conn.Write(ctx, data)
}

// sendCommand guards a fixed command with the readiness check
func (d *Driver) sendCommand(ctx context.Context, name string, seq []byte) error {
	if err := d.requireReady(); err != nil {
		return err
	}
	return d.sendNamed(ctx, name, seq)
}

// sendNamed sends an already validated sequence and traces it
func (d *Driver) sendNamed(ctx context.Context, name string, seq []byte) error {
	start := time.Now()
	if err := d.send(ctx, seq); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}

	d.logger.LogExchange(name, len(seq), 0, time.Since(start))
	return nil
}

func (d *Driver) setState(state driver.LinkState) {
	d.mutex.Lock()
	d.state = state
	d.mutex.Unlock()
}

func (d *Driver) setIdentity(info *driver.TerminalInfo, speed int) {
	d.mutex.Lock()
	d.info = info
	d.speed = speed
	d.mutex.Unlock()
}

func (d *Driver) setSpeed(speed int) {
	d.mutex.Lock()
	d.speed = speed
	d.mutex.Unlock()
}
