// internal/service/terminal_service_test.go
package service

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/driver/minitel"
	"minitel-service/internal/model"
	"minitel-service/internal/transport"
	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// fakeConn is a scripted transport connection, registered on the
// factory in place of the serial builder. The script inspects each
// write and injects terminal replies through the attached consumer.
type fakeConn struct {
	mu       sync.Mutex
	consumer func(chunk []byte)
	open     bool
	baud     int
	writes   [][]byte
	script   func(c *fakeConn, baud int, data []byte)
}

func (c *fakeConn) Open(ctx context.Context, baud int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return transport.ErrAlreadyOpen
	}
	c.open = true
	c.baud = baud
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
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

func (c *fakeConn) Kind() driver.LinkKind { return driver.LinkSerial }

func (c *fakeConn) SupportsBaudChange() bool { return true }

func (c *fakeConn) Stats() transport.LinkStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return transport.LinkStats{IsConnected: c.open}
}

func (c *fakeConn) inject(data []byte) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()

	if consumer != nil {
		consumer(data)
	}
}

func (c *fakeConn) writeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

func (c *fakeConn) baudRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baud
}

// minitel1 identifies as a Minitel 1, which tops out at 1200 baud
var minitel1 = []byte{0x01, 'C', 'b', '1', 0x04}

// minitel2 identifies as a 9600-capable Minitel 2
var minitel2 = []byte{0x01, 'C', 'v', '2', 0x04}

// identifyAt answers the identification request at the given baud rate
// and stays silent otherwise
func identifyAt(answerBaud int, reply []byte) func(*fakeConn, int, []byte) {
	return func(c *fakeConn, baud int, data []byte) {
		if baud == answerBaud && bytes.Equal(data, minitel.VIDEOTEX_COMMANDS.IDENT_REQUEST) {
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
		case baud == answerBaud && bytes.Equal(data, minitel.VIDEOTEX_COMMANDS.IDENT_REQUEST):
			time.Sleep(5 * time.Millisecond)
			c.inject(reply)
		case bytes.HasPrefix(data, minitel.VIDEOTEX_COMMANDS.SPEED_PROGRAM):
			time.Sleep(5 * time.Millisecond)
			c.inject([]byte{0x1B, 0x3A, 0x75, data[3]})
		case bytes.Equal(data, minitel.VIDEOTEX_COMMANDS.ECHO_OFF):
			time.Sleep(5 * time.Millisecond)
			c.inject([]byte{0x1B, 0x3B, 0x63, 0x52})
		}
	}
}

// fakeSink collects published session events
type fakeSink struct {
	mu     sync.Mutex
	events []*model.SessionEvent
}

func (s *fakeSink) Publish(event *model.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeSink) types() []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.EventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

func (s *fakeSink) last(eventType model.EventType) *model.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].EventType == eventType {
			return s.events[i]
		}
	}
	return nil
}

func (s *fakeSink) has(eventType model.EventType) bool {
	return s.last(eventType) != nil
}

func testConfig() *config.Config {
	return &config.Config{
		Terminal: config.TerminalConfig{
			Link:         "serial",
			Port:         "/dev/ttyUSB0",
			Speed:        config.SpeedAuto,
			AllowUpgrade: true,
			WriteTimeout: 2 * time.Second,
		},
	}
}

// newTestService wires a terminal service whose serial links resolve to
// the scripted connection
func newTestService(t *testing.T, script func(*fakeConn, int, []byte)) (*TerminalService, *fakeConn, *fakeSink) {
	t.Helper()

	conn := &fakeConn{script: script}
	factory := transport.NewFactory(zap.NewNop())
	factory.Register(driver.LinkSerial, func(settings driver.LinkSettings, logger *zap.Logger) (transport.Connection, error) {
		return conn, nil
	})

	sink := &fakeSink{}
	svc := NewTerminalService(factory, sink, testConfig(), zap.NewNop())

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_, _ = svc.Close(ctx, "test teardown")
	})
	return svc, conn, sink
}

func openSession(t *testing.T, svc *TerminalService) *model.TerminalSession {
	t.Helper()
	session, err := svc.Open(context.Background(), nil)
	require.NoError(t, err)
	return session
}

func TestOpenStartsReadySession(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))

	session := openSession(t, svc)

	assert.Equal(t, model.SessionStatusReady, session.Status)
	assert.Equal(t, videotex.Speed1200, session.Speed)
	require.NotNil(t, session.Terminal)
	assert.Equal(t, "Minitel 1", session.Terminal.Name)
	assert.NotNil(t, session.ReadyAt)

	assert.True(t, svc.IsConnected())
	assert.Equal(t, driver.StateReady, svc.LinkState())

	assert.Equal(t, []model.EventType{
		model.EventSessionOpened,
		model.EventSessionReady,
	}, sink.types())
}

func TestOpenWhileActiveReturnsConflict(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	_, err := svc.Open(context.Background(), nil)
	assert.ErrorIs(t, err, minitel.ErrAlreadyConnected)
}

func TestOpenRejectsUnparseableSpeed(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))

	_, err := svc.Open(context.Background(), &OpenRequest{Speed: "fast"})
	assert.ErrorIs(t, err, minitel.ErrValidation)

	// Validation happens before any session exists.
	_, err = svc.Session()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Empty(t, sink.types())
}

func TestOpenRejectsUnsupportedSpeed(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))

	_, err := svc.Open(context.Background(), &OpenRequest{Speed: "2400"})
	assert.ErrorIs(t, err, minitel.ErrValidation)
}

func TestOpenFailureMarksSessionFailed(t *testing.T) {
	svc, _, sink := newTestService(t, nil) // terminal never answers

	_, err := svc.Open(context.Background(), nil)
	assert.ErrorIs(t, err, minitel.ErrConnectionFailed)
	assert.False(t, svc.IsConnected())

	session, err := svc.Session()
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFailed, session.Status)
	assert.NotEmpty(t, session.LastError)
	assert.NotNil(t, session.ClosedAt)

	assert.True(t, sink.has(model.EventSessionFailed))
	assert.False(t, sink.has(model.EventSessionReady))
}

func TestOpenRequestOverridesConfiguredLink(t *testing.T) {
	svc, conn, _ := newTestService(t, identifyAndAck(videotex.Speed4800, minitel2))

	session, err := svc.Open(context.Background(), &OpenRequest{Speed: "4800"})
	require.NoError(t, err)

	// Fixed speed probes only the requested rate and never upgrades.
	assert.Equal(t, videotex.Speed4800, session.Speed)
	assert.Equal(t, videotex.Speed4800, conn.baudRate())
	assert.Equal(t, driver.LinkSerial, session.Settings.Kind)
}

func TestCloseEndsSession(t *testing.T) {
	svc, conn, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	opened := openSession(t, svc)

	closed, err := svc.Close(context.Background(), "operator request")
	require.NoError(t, err)

	assert.Equal(t, opened.ID, closed.ID)
	assert.Equal(t, model.SessionStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)
	assert.False(t, svc.IsConnected())
	assert.False(t, conn.IsOpen())

	event := sink.last(model.EventSessionClosed)
	require.NotNil(t, event)
	assert.Equal(t, "operator request", event.Data["reason"])
}

func TestCloseWithoutSessionReturnsNoSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	_, err := svc.Close(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionSurvivesClose(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	opened := openSession(t, svc)

	_, err := svc.Close(context.Background(), "")
	require.NoError(t, err)

	// The closed session stays inspectable until the next open.
	session, err := svc.Session()
	require.NoError(t, err)
	assert.Equal(t, opened.ID, session.ID)
	assert.Equal(t, model.SessionStatusClosed, session.Status)
}

func TestReopenAfterCloseStartsNewSession(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	first := openSession(t, svc)

	_, err := svc.Close(context.Background(), "")
	require.NoError(t, err)

	second := openSession(t, svc)
	assert.NotEqual(t, first.ID, second.ID)
	assert.True(t, svc.IsConnected())
}

func TestOperationsRequireSession(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.WriteText(ctx, "hello"), minitel.ErrNotConnected)
	assert.ErrorIs(t, svc.Clear(ctx), minitel.ErrNotConnected)
	assert.ErrorIs(t, svc.MoveCursor(ctx, 1, 1), minitel.ErrNotConnected)

	_, err := svc.DisableEcho(ctx)
	assert.ErrorIs(t, err, minitel.ErrNotConnected)

	_, err = svc.ExecuteBatch(ctx, []model.BatchOperation{{Type: model.OperationClear}})
	assert.ErrorIs(t, err, minitel.ErrNotConnected)
}

func TestExecuteBatchRunsOperationsInOrder(t *testing.T) {
	svc, conn, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)
	before := conn.writeCount()

	result, err := svc.ExecuteBatch(context.Background(), []model.BatchOperation{
		{Type: model.OperationClear},
		{Type: model.OperationTextAt, Row: 2, Col: 1, Text: "MENU"},
		{Type: model.OperationFormat, Format: "blink"},
		{Type: model.OperationRepeat, Char: "-", Count: 40},
		{Type: model.OperationBeep},
	})

	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Executed)
	assert.Nil(t, result.FailedAt)
	assert.True(t, result.Succeeded())
	assert.Equal(t, before+5, conn.writeCount())
}

func TestExecuteBatchStopsAtFirstError(t *testing.T) {
	svc, conn, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)
	before := conn.writeCount()

	result, err := svc.ExecuteBatch(context.Background(), []model.BatchOperation{
		{Type: model.OperationClear},
		{Type: model.OperationMove, Row: 99, Col: 1},
		{Type: model.OperationText, Text: "never sent"},
	})

	assert.ErrorIs(t, err, minitel.ErrValidation)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Executed)
	require.NotNil(t, result.FailedAt)
	assert.Equal(t, 1, *result.FailedAt)
	assert.NotEmpty(t, result.Error)

	// Only the clear reached the wire.
	assert.Equal(t, before+1, conn.writeCount())
}

func TestExecuteBatchRejectsEmptyList(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	_, err := svc.ExecuteBatch(context.Background(), nil)
	assert.ErrorIs(t, err, minitel.ErrValidation)
}

func TestExecuteBatchRejectsUnknownOperation(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	result, err := svc.ExecuteBatch(context.Background(), []model.BatchOperation{
		{Type: "scroll"},
	})

	assert.ErrorIs(t, err, minitel.ErrValidation)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Executed)
}

func TestExecuteBatchRejectsMultiCharacterRepeat(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	_, err := svc.ExecuteBatch(context.Background(), []model.BatchOperation{
		{Type: model.OperationRepeat, Char: "ab", Count: 3},
	})
	assert.ErrorIs(t, err, minitel.ErrValidation)
}

func TestDisableEchoAcknowledged(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAndAck(videotex.Speed1200, minitel1))
	openSession(t, svc)

	acked, err := svc.DisableEcho(context.Background())
	require.NoError(t, err)
	assert.True(t, acked)

	session, err := svc.Session()
	require.NoError(t, err)
	assert.True(t, session.EchoDisabled)
	assert.False(t, session.EchoDegraded)
	assert.False(t, sink.has(model.EventEchoDegraded))
}

func TestDisableEchoDegradesOnSilence(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	acked, err := svc.DisableEcho(context.Background())
	require.NoError(t, err)
	assert.False(t, acked)

	// The session stays usable, flagged as degraded.
	assert.True(t, svc.IsConnected())
	session, err := svc.Session()
	require.NoError(t, err)
	assert.False(t, session.EchoDisabled)
	assert.True(t, session.EchoDegraded)
	assert.True(t, sink.has(model.EventEchoDegraded))
}

func TestOpenRunsEchoHandshakeWhenConfigured(t *testing.T) {
	svc, _, _ := newTestService(t, identifyAndAck(videotex.Speed1200, minitel1))
	yes := true

	session, err := svc.Open(context.Background(), &OpenRequest{DisableEcho: &yes})
	require.NoError(t, err)
	assert.True(t, session.EchoDisabled)
}

func TestSpeedUpgradePublishesOutcome(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAndAck(videotex.Speed1200, minitel2))

	session := openSession(t, svc)

	assert.Equal(t, videotex.Speed9600, session.Speed)
	assert.False(t, session.SpeedDegraded)

	event := sink.last(model.EventSpeedUpgraded)
	require.NotNil(t, event)
	assert.Equal(t, true, event.Data["applied"])
	assert.Equal(t, videotex.Speed9600, event.Data["max_speed"])
}

func TestUnansweredUpgradeDegradesSession(t *testing.T) {
	svc, _, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel2))

	session := openSession(t, svc)

	// The link stays at the probe speed below the terminal maximum.
	assert.Equal(t, videotex.Speed1200, session.Speed)
	assert.True(t, session.SpeedDegraded)
	assert.Equal(t, model.SessionStatusReady, session.Status)

	event := sink.last(model.EventUpgradeDegrade)
	require.NotNil(t, event)
	assert.Equal(t, false, event.Data["applied"])
}

func TestKeystrokeBecomesSessionEvent(t *testing.T) {
	svc, conn, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	conn.inject([]byte{videotex.KeyPrefix, byte(videotex.KeyEnvoi)})

	require.Eventually(t, func() bool {
		return sink.has(model.EventKeyPressed)
	}, 2*time.Second, 10*time.Millisecond)

	event := sink.last(model.EventKeyPressed)
	assert.Equal(t, videotex.KeyEnvoi.String(), event.Data["key"])
}

func TestUnrecognizedInputBecomesInputEvent(t *testing.T) {
	svc, conn, sink := newTestService(t, identifyAt(videotex.Speed1200, minitel1))
	openSession(t, svc)

	conn.inject([]byte("AB"))

	require.Eventually(t, func() bool {
		return sink.has(model.EventInputReceived)
	}, 2*time.Second, 10*time.Millisecond)

	event := sink.last(model.EventInputReceived)
	assert.Equal(t, "4142", event.Data["hex"])
	assert.Equal(t, "AB", event.Data["text"])
	assert.Equal(t, 2, event.Data["size"])
}

func TestFormatsListsKnownNames(t *testing.T) {
	svc, _, _ := newTestService(t, nil)

	formats := svc.Formats()
	assert.Contains(t, formats, "blink")
	assert.Contains(t, formats, "inverse_on")
	assert.Contains(t, formats, "char_white")
}
