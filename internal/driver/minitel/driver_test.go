// internal/driver/minitel/driver_test.go
package minitel

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minitel-service/internal/transport"
	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// fakeConn is a scripted transport connection. The script inspects each
// write and injects terminal replies through the attached consumer, the
// way a real read loop would deliver them.
type fakeConn struct {
	mu         sync.Mutex
	consumer   func(chunk []byte)
	open       bool
	baud       int
	log        []string
	writes     [][]byte
	baudChange bool
	script     func(c *fakeConn, baud int, data []byte)
}

func newFakeConn() *fakeConn {
	return &fakeConn{baudChange: true}
}

func (c *fakeConn) Open(ctx context.Context, baud int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return transport.ErrAlreadyOpen
	}
	c.open = true
	c.baud = baud
	c.log = append(c.log, fmt.Sprintf("open:%d", baud))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		c.open = false
		c.log = append(c.log, "close")
	}
	return nil
}

func (c *fakeConn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return transport.ErrNotOpen
	}
	buf := append([]byte(nil), data...)
	c.writes = append(c.writes, buf)
	baud := c.baud
	script := c.script
	c.mu.Unlock()

	if script != nil {
		go script(c, baud, buf)
	}
	return nil
}

func (c *fakeConn) Attach(consumer func(chunk []byte)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumer = consumer
}

func (c *fakeConn) Kind() driver.LinkKind {
	return driver.LinkSerial
}

func (c *fakeConn) SupportsBaudChange() bool {
	return c.baudChange
}

func (c *fakeConn) Stats() transport.LinkStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return transport.LinkStats{IsConnected: c.open}
}

// inject delivers terminal bytes to the driver
func (c *fakeConn) inject(data []byte) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()

	if consumer != nil {
		consumer(data)
	}
}

func (c *fakeConn) events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.log...)
}

func (c *fakeConn) allWrites() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	copy(out, c.writes)
	return out
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

// identifyAt answers the identification request when probed at the
// given baud rate and ignores everything else
func identifyAt(answerBaud int, reply []byte) func(*fakeConn, int, []byte) {
	return func(c *fakeConn, baud int, data []byte) {
		if baud == answerBaud && bytes.Equal(data, VIDEOTEX_COMMANDS.IDENT_REQUEST) {
			time.Sleep(5 * time.Millisecond)
			c.inject(reply)
		}
	}
}

// identifyAndAck additionally acknowledges speed programming and
// echo-off requests
func identifyAndAck(answerBaud int, reply []byte) func(*fakeConn, int, []byte) {
	return func(c *fakeConn, baud int, data []byte) {
		switch {
		case baud == answerBaud && bytes.Equal(data, VIDEOTEX_COMMANDS.IDENT_REQUEST):
			time.Sleep(5 * time.Millisecond)
			c.inject(reply)
		case bytes.HasPrefix(data, VIDEOTEX_COMMANDS.SPEED_PROGRAM):
			time.Sleep(5 * time.Millisecond)
			c.inject([]byte{0x1B, 0x3A, 0x75, data[3]})
		case bytes.Equal(data, VIDEOTEX_COMMANDS.ECHO_OFF):
			time.Sleep(5 * time.Millisecond)
			c.inject([]byte{0x1B, 0x3B, 0x63, 0x52})
		}
	}
}

func autoSettings() driver.LinkSettings {
	return driver.LinkSettings{
		Kind:         driver.LinkSerial,
		Port:         "/dev/ttyUSB0",
		Speed:        driver.SpeedAuto,
		AllowUpgrade: true,
	}
}

func newTestDriver(t *testing.T, conn transport.Connection, settings driver.LinkSettings) *Driver {
	t.Helper()
	d := New(settings, conn, zap.NewNop())
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// connectedDriver negotiates a ready 1200 baud link against a Minitel 1
func connectedDriver(t *testing.T) (*Driver, *fakeConn) {
	t.Helper()

	conn := newFakeConn()
	conn.script = identifyAt(videotex.Speed1200, []byte{0x01, 'C', 'b', '1', 0x04})
	d := newTestDriver(t, conn, autoSettings())
	require.NoError(t, d.Connect(context.Background()))
	return d, conn
}

func TestConnectIdentifiesAtFirstCandidate(t *testing.T) {
	conn := newFakeConn()
	conn.script = identifyAt(videotex.Speed1200, []byte{0x01, 'C', 'b', '1', 0x04})
	d := newTestDriver(t, conn, autoSettings())

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, driver.StateReady, d.State())
	assert.True(t, d.IsConnected())
	assert.Equal(t, videotex.Speed1200, d.Speed())

	info, err := d.Info()
	require.NoError(t, err)
	assert.Equal(t, "Minitel 1", info.Name)
	assert.Equal(t, "Telic-Alcatel", info.Maker)

	// Max speed equals the probe speed, so the link never reopens.
	assert.Equal(t, []string{"open:1200"}, conn.events())

	// The screen is wiped right after identification.
	writes := conn.allWrites()
	require.NotEmpty(t, writes)
	assert.Equal(t, VIDEOTEX_COMMANDS.CLEAR_SCREEN, writes[len(writes)-1])
}

func TestConnectFallsBackToSecondCandidate(t *testing.T) {
	conn := newFakeConn()
	conn.script = identifyAt(videotex.Speed4800, []byte{0x01, 'B', 'u', '1', 0x04})
	d := newTestDriver(t, conn, autoSettings())

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, videotex.Speed4800, d.Speed())
	assert.Equal(t, driver.StateReady, d.State())

	// The silent candidate is closed before the next one opens.
	assert.Equal(t, []string{"open:1200", "close", "open:4800"}, conn.events())
}

func TestConnectUpgradesToTerminalMaximum(t *testing.T) {
	conn := newFakeConn()
	conn.script = identifyAndAck(videotex.Speed1200, []byte{0x01, 'C', 'v', '2', 0x04})
	d := newTestDriver(t, conn, autoSettings())

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, driver.StateReady, d.State())
	assert.Equal(t, videotex.Speed9600, d.Speed())
	assert.Equal(t, []string{"open:1200", "close", "open:9600"}, conn.events())

	info, err := d.Info()
	require.NoError(t, err)
	assert.Equal(t, "Minitel 2", info.Name)
}

func TestConnectKeepsSpeedWhenUpgradeUnanswered(t *testing.T) {
	conn := newFakeConn()
	// Identifies as 9600-capable but never acknowledges the reprogram.
	conn.script = identifyAt(videotex.Speed1200, []byte{0x01, 'C', 'v', '2', 0x04})
	d := newTestDriver(t, conn, autoSettings())

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, driver.StateReady, d.State())
	assert.Equal(t, videotex.Speed1200, d.Speed())
	assert.Equal(t, []string{"open:1200"}, conn.events())
}

func TestConnectSkipsUpgradeWhenLinkCannotChangeBaud(t *testing.T) {
	conn := newFakeConn()
	conn.baudChange = false
	conn.script = identifyAndAck(videotex.Speed1200, []byte{0x01, 'C', 'v', '2', 0x04})
	d := newTestDriver(t, conn, autoSettings())

	require.NoError(t, d.Connect(context.Background()))

	assert.Equal(t, videotex.Speed1200, d.Speed())
	assert.Equal(t, []string{"open:1200"}, conn.events())
}

func TestConnectFailsWhenAllCandidatesSilent(t *testing.T) {
	conn := newFakeConn()
	d := newTestDriver(t, conn, autoSettings())

	err := d.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, driver.StateFailed, d.State())
	assert.False(t, d.IsConnected())

	assert.Equal(t, []string{
		"open:1200", "close",
		"open:4800", "close",
		"open:9600", "close",
	}, conn.events())
}

func TestConnectFixedSpeedProbesOnlyThatSpeed(t *testing.T) {
	settings := autoSettings()
	settings.Speed = videotex.Speed4800

	conn := newFakeConn()
	conn.script = identifyAndAck(videotex.Speed4800, []byte{0x01, 'C', 'v', '2', 0x04})
	d := newTestDriver(t, conn, settings)

	require.NoError(t, d.Connect(context.Background()))

	// Fixed mode never probes other speeds and never upgrades, even
	// for a 9600-capable terminal.
	assert.Equal(t, videotex.Speed4800, d.Speed())
	assert.Equal(t, []string{"open:4800"}, conn.events())
}

func TestConnectTwiceReturnsAlreadyConnected(t *testing.T) {
	d, _ := connectedDriver(t)

	err := d.Connect(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	d, conn := connectedDriver(t)

	require.NoError(t, d.Disconnect(context.Background()))
	assert.Equal(t, driver.StateIdle, d.State())
	assert.False(t, d.IsConnected())
	assert.Zero(t, d.Speed())
	assert.False(t, conn.IsOpen())

	_, err := d.Info()
	assert.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, d.Disconnect(context.Background()))
}

func TestOperationsRequireConnection(t *testing.T) {
	conn := newFakeConn()
	d := newTestDriver(t, conn, autoSettings())
	ctx := context.Background()

	assert.ErrorIs(t, d.Clear(ctx), ErrNotConnected)
	assert.ErrorIs(t, d.WriteText(ctx, "hello"), ErrNotConnected)
	assert.ErrorIs(t, d.MoveCursor(ctx, 1, 1), ErrNotConnected)
	assert.ErrorIs(t, d.SetFormat(ctx, "blink"), ErrNotConnected)

	_, err := d.DisableLocalEcho(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.Zero(t, conn.writeCount())
}

func TestMoveCursorRejectsOutOfRangeBeforeSending(t *testing.T) {
	d, conn := connectedDriver(t)
	before := conn.writeCount()

	err := d.MoveCursor(context.Background(), 25, 1)
	assert.ErrorIs(t, err, ErrValidation)

	err = d.MoveCursor(context.Background(), 1, 0)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, before, conn.writeCount())
}

func TestWriteRepeatedRejectsNonPositiveCount(t *testing.T) {
	d, conn := connectedDriver(t)
	before := conn.writeCount()

	err := d.WriteRepeated(context.Background(), '-', 0)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, before, conn.writeCount())
}

func TestSetFormatRejectsUnknownName(t *testing.T) {
	d, conn := connectedDriver(t)
	before := conn.writeCount()

	err := d.SetFormat(context.Background(), "bold")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, before, conn.writeCount())
}

func TestPrintAtComposesSingleWrite(t *testing.T) {
	d, conn := connectedDriver(t)
	before := conn.writeCount()

	require.NoError(t, d.PrintAt(context.Background(), 5, 10, "Hi"))

	writes := conn.allWrites()
	require.Equal(t, before+1, len(writes))
	assert.Equal(t, []byte{0x1F, 0x45, 0x4A, 'H', 'i'}, writes[len(writes)-1])
}

func TestWriteTextEmptyStringSendsNothing(t *testing.T) {
	d, conn := connectedDriver(t)
	before := conn.writeCount()

	require.NoError(t, d.WriteText(context.Background(), ""))
	assert.Equal(t, before, conn.writeCount())
}

func TestDisableLocalEchoAcknowledged(t *testing.T) {
	conn := newFakeConn()
	conn.script = identifyAndAck(videotex.Speed1200, []byte{0x01, 'C', 'b', '1', 0x04})
	d := newTestDriver(t, conn, autoSettings())
	require.NoError(t, d.Connect(context.Background()))

	acknowledged, err := d.DisableLocalEcho(context.Background())
	require.NoError(t, err)
	assert.True(t, acknowledged)
}

func TestDisableLocalEchoToleratesSilence(t *testing.T) {
	d, _ := connectedDriver(t)

	acknowledged, err := d.DisableLocalEcho(context.Background())
	require.NoError(t, err)
	assert.False(t, acknowledged)
	assert.True(t, d.IsConnected())
}

func TestKeystrokesReachTheHandler(t *testing.T) {
	d, conn := connectedDriver(t)

	events := make(chan []byte, 1)
	d.OnData(func(event []byte) { events <- event })

	conn.inject([]byte{videotex.KeyPrefix, byte(videotex.KeyEnvoi)})

	select {
	case event := <-events:
		assert.Equal(t, videotex.KeyEnvoi, videotex.ParseFunctionKey(event))
	case <-time.After(time.Second):
		t.Fatal("keystroke never reached the handler")
	}
}
