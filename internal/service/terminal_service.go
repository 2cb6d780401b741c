// internal/service/terminal_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/driver/minitel"
	"minitel-service/internal/model"
	"minitel-service/internal/transport"
	"minitel-service/internal/utils"
	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// ErrNoSession is returned when an operation needs a session and none
// has been opened yet.
var ErrNoSession = errors.New("no terminal session")

// EventSink receives session events for distribution
type EventSink interface {
	Publish(event *model.SessionEvent)
}

// TerminalService owns the single terminal link: it builds the driver,
// tracks the session lifecycle and turns driver activity into session
// events. At most one session is active at a time.
type TerminalService struct {
	factory     *transport.Factory
	events      EventSink
	config      *config.Config
	logger      *utils.ServiceLogger
	auditLogger *utils.AuditLogger
	baseLogger  *zap.Logger

	mutex   sync.RWMutex
	drv     driver.TerminalDriver
	session *model.TerminalSession
}

// NewTerminalService creates a new terminal service instance
func NewTerminalService(
	factory *transport.Factory,
	events EventSink,
	cfg *config.Config,
	logger *zap.Logger,
) *TerminalService {
	return &TerminalService{
		factory:     factory,
		events:      events,
		config:      cfg,
		logger:      utils.NewServiceLogger(logger, "terminal-service"),
		auditLogger: utils.NewAuditLogger(logger),
		baseLogger:  logger,
	}
}

// Open connects the terminal and starts a new session. Request fields
// override the configured link defaults; empty fields keep them.
func (ts *TerminalService) Open(ctx context.Context, req *OpenRequest) (*model.TerminalSession, error) {
	ts.mutex.Lock()

	if ts.session != nil && ts.session.IsActive() {
		active := ts.session.ID
		ts.mutex.Unlock()
		return nil, fmt.Errorf("%w: session %s owns the link", minitel.ErrAlreadyConnected, active)
	}

	settings, disableEcho, err := ts.resolveSettings(req)
	if err != nil {
		ts.mutex.Unlock()
		return nil, err
	}

	session := model.NewSession(settings)
	ts.session = session
	ts.mutex.Unlock()

	ts.publish(model.EventSessionOpened, session, model.SeverityInfo, model.JSONObject{
		"link":    string(settings.Kind),
		"address": settings.Address(),
	})

	conn, err := ts.factory.Create(settings)
	if err != nil {
		return nil, ts.failSession(session, fmt.Errorf("failed to create link: %w", err))
	}

	drv := minitel.New(settings, conn, ts.baseLogger)
	drv.OnData(ts.handleInput)

	if err := drv.Connect(ctx); err != nil {
		return nil, ts.failSession(session, err)
	}

	info, err := drv.Info()
	if err != nil {
		_ = drv.Disconnect(ctx)
		return nil, ts.failSession(session, err)
	}

	ts.mutex.Lock()
	ts.drv = drv
	now := time.Now()
	session.Status = model.SessionStatusReady
	session.Terminal = info
	session.Speed = drv.Speed()
	session.ReadyAt = &now
	ts.mutex.Unlock()

	ts.publishSpeedOutcome(session, settings, info)

	if disableEcho {
		if err := ts.runEchoHandshake(ctx, session); err != nil {
			_ = drv.Disconnect(ctx)
			ts.mutex.Lock()
			ts.drv = nil
			ts.mutex.Unlock()
			return nil, ts.failSession(session, err)
		}
	}

	ts.publish(model.EventSessionReady, session, model.SeverityInfo, model.JSONObject{
		"terminal": info.Name,
		"maker":    info.Maker,
		"speed":    session.Speed,
	})

	ts.auditLogger.LogSessionOpened(session.ID.String(), string(settings.Kind), settings.Address(), session.Speed, true)

	ts.logger.Info("Terminal session ready",
		zap.String("session_id", session.ID.String()),
		zap.String("terminal", info.Name),
		zap.Int("speed", session.Speed),
	)

	return ts.sessionCopy(), nil
}

// Close disconnects the terminal and closes the session
func (ts *TerminalService) Close(ctx context.Context, reason string) (*model.TerminalSession, error) {
	ts.mutex.Lock()

	if ts.session == nil || !ts.session.IsActive() {
		ts.mutex.Unlock()
		return nil, fmt.Errorf("%w: nothing to close", ErrNoSession)
	}

	session := ts.session
	drv := ts.drv
	ts.drv = nil

	now := time.Now()
	session.Status = model.SessionStatusClosed
	session.ClosedAt = &now
	ts.mutex.Unlock()

	if drv != nil {
		if err := drv.Disconnect(ctx); err != nil {
			ts.logger.Warn("Terminal disconnect reported an error",
				zap.String("session_id", session.ID.String()),
				zap.Error(err),
			)
		}
	}

	if reason == "" {
		reason = "requested"
	}

	ts.publish(model.EventSessionClosed, session, model.SeverityInfo, model.JSONObject{
		"reason": reason,
	})
	ts.auditLogger.LogSessionClosed(session.ID.String(), reason)

	ts.logger.Info("Terminal session closed",
		zap.String("session_id", session.ID.String()),
		zap.String("reason", reason),
	)

	return ts.sessionCopy(), nil
}

// Session returns the most recent session, which may already be closed
// or failed
func (ts *TerminalService) Session() (*model.TerminalSession, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if ts.session == nil {
		return nil, ErrNoSession
	}
	copied := *ts.session
	return &copied, nil
}

// IsConnected reports whether an active session owns a ready link
func (ts *TerminalService) IsConnected() bool {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	return ts.drv != nil && ts.drv.IsConnected()
}

// LinkState returns the driver state of the current link
func (ts *TerminalService) LinkState() driver.LinkState {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if ts.drv == nil {
		return driver.StateIdle
	}
	return ts.drv.State()
}

// Formats lists the symbolic names accepted by the format operation
func (ts *TerminalService) Formats() []string {
	return minitel.ValidFormatNames()
}

// Terminal output operations, all requiring a ready session.

// WriteText writes encoded text at the cursor position
func (ts *TerminalService) WriteText(ctx context.Context, text string) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return drv.WriteText(ctx, text)
}

// PrintAt moves the cursor and writes text as one send
func (ts *TerminalService) PrintAt(ctx context.Context, row, col int, text string) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return drv.PrintAt(ctx, row, col, text)
}

// WriteRepeated writes one character count times using repeat compression
func (ts *TerminalService) WriteRepeated(ctx context.Context, char rune, count int) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return drv.WriteRepeated(ctx, char, count)
}

// SetFormat switches a display attribute by symbolic name
func (ts *TerminalService) SetFormat(ctx context.Context, name string) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return drv.SetFormat(ctx, name)
}

// MoveCursor positions the cursor. Row 0 is the status row.
func (ts *TerminalService) MoveCursor(ctx context.Context, row, col int) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return drv.MoveCursor(ctx, row, col)
}

// SetCursorVisible shows or hides the cursor
func (ts *TerminalService) SetCursorVisible(ctx context.Context, visible bool) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	if visible {
		return drv.ShowCursor(ctx)
	}
	return drv.HideCursor(ctx)
}

// Clear wipes the screen
func (ts *TerminalService) Clear(ctx context.Context) error {
	return ts.simpleOp(ctx, func(ctx context.Context, drv driver.TerminalDriver) error {
		return drv.Clear(ctx)
	})
}

// Home moves the cursor to the top of the screen
func (ts *TerminalService) Home(ctx context.Context) error {
	return ts.simpleOp(ctx, func(ctx context.Context, drv driver.TerminalDriver) error {
		return drv.Home(ctx)
	})
}

// Beep sounds the terminal buzzer
func (ts *TerminalService) Beep(ctx context.Context) error {
	return ts.simpleOp(ctx, func(ctx context.Context, drv driver.TerminalDriver) error {
		return drv.Beep(ctx)
	})
}

// NewLine moves the cursor to the start of the next row
func (ts *TerminalService) NewLine(ctx context.Context) error {
	return ts.simpleOp(ctx, func(ctx context.Context, drv driver.TerminalDriver) error {
		return drv.NewLine(ctx)
	})
}

// DisableEcho runs the local echo handshake on the active session
func (ts *TerminalService) DisableEcho(ctx context.Context) (bool, error) {
	ts.mutex.RLock()
	session := ts.session
	drv := ts.drv
	ts.mutex.RUnlock()

	if drv == nil || session == nil {
		return false, minitel.ErrNotConnected
	}
	if err := ts.runEchoHandshake(ctx, session); err != nil {
		return false, err
	}

	ts.mutex.RLock()
	defer ts.mutex.RUnlock()
	return session.EchoDisabled, nil
}

// ExecuteBatch dispatches an ordered list of output operations through
// one serialized pass, stopping at the first error. This is the page
// painting path: a screen is cleared, positioned, formatted and filled
// by a single request.
func (ts *TerminalService) ExecuteBatch(ctx context.Context, ops []model.BatchOperation) (*model.BatchResult, error) {
	if _, err := ts.requireDriver(); err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: batch is empty", minitel.ErrValidation)
	}

	result := &model.BatchResult{Total: len(ops)}
	sessionID := ts.currentSessionID()

	opLogger := utils.NewOperationLogger(ts.baseLogger, "batch", uuid.New().String())
	opLogger.Start(
		zap.Int("operations", len(ops)),
		zap.String("session_id", sessionID),
	)

	for i, op := range ops {
		if err := ts.dispatch(ctx, op); err != nil {
			failedAt := i
			result.FailedAt = &failedAt
			result.Error = err.Error()

			ts.auditLogger.LogBatchExecution(sessionID, len(ops), failedAt, false)
			opLogger.Error(err,
				zap.Int("failed_at", failedAt),
				zap.String("operation", string(op.Type)),
			)
			return result, err
		}
		result.Executed++
	}

	ts.auditLogger.LogBatchExecution(sessionID, len(ops), -1, true)
	opLogger.Success(zap.Int("executed", result.Executed))
	return result, nil
}

// dispatch runs one batch operation against the driver
func (ts *TerminalService) dispatch(ctx context.Context, op model.BatchOperation) error {
	switch op.Type {
	case model.OperationClear:
		return ts.Clear(ctx)
	case model.OperationHome:
		return ts.Home(ctx)
	case model.OperationBeep:
		return ts.Beep(ctx)
	case model.OperationNewLine:
		return ts.NewLine(ctx)
	case model.OperationMove:
		return ts.MoveCursor(ctx, op.Row, op.Col)
	case model.OperationText:
		return ts.WriteText(ctx, op.Text)
	case model.OperationTextAt:
		return ts.PrintAt(ctx, op.Row, op.Col, op.Text)
	case model.OperationRepeat:
		char, err := singleRune(op.Char)
		if err != nil {
			return err
		}
		return ts.WriteRepeated(ctx, char, op.Count)
	case model.OperationFormat:
		return ts.SetFormat(ctx, op.Format)
	case model.OperationShowCursor:
		return ts.SetCursorVisible(ctx, true)
	case model.OperationHideCursor:
		return ts.SetCursorVisible(ctx, false)
	default:
		return fmt.Errorf("%w: unknown operation type %q", minitel.ErrValidation, op.Type)
	}
}

// Helper methods

// resolveSettings merges request overrides over the configured link
// defaults and validates the result.
func (ts *TerminalService) resolveSettings(req *OpenRequest) (driver.LinkSettings, bool, error) {
	terminal := ts.config.Terminal
	if req != nil {
		if req.Link != "" {
			terminal.Link = req.Link
		}
		if req.Port != "" {
			terminal.Port = req.Port
		}
		if req.Host != "" {
			terminal.Host = req.Host
		}
		if req.TCPPort != 0 {
			terminal.TCPPort = req.TCPPort
		}
		if req.Speed != "" {
			terminal.Speed = req.Speed
		}
		if req.AllowUpgrade != nil {
			terminal.AllowUpgrade = *req.AllowUpgrade
		}
		if req.DisableEcho != nil {
			terminal.DisableEcho = *req.DisableEcho
		}
	}

	if terminal.Speed != config.SpeedAuto {
		if _, err := strconv.Atoi(terminal.Speed); err != nil {
			return driver.LinkSettings{}, false, fmt.Errorf("%w: speed %q is not %q or a baud value",
				minitel.ErrValidation, terminal.Speed, config.SpeedAuto)
		}
	}

	settings := terminal.LinkSettings()
	if err := transport.Validate(settings); err != nil {
		return driver.LinkSettings{}, false, fmt.Errorf("%w: %v", minitel.ErrValidation, err)
	}

	return settings, terminal.DisableEcho, nil
}

// runEchoHandshake runs DisableLocalEcho and records the outcome on the
// session. An unacknowledged handshake degrades the session instead of
// failing it.
func (ts *TerminalService) runEchoHandshake(ctx context.Context, session *model.TerminalSession) error {
	ts.mutex.RLock()
	drv := ts.drv
	ts.mutex.RUnlock()
	if drv == nil {
		return minitel.ErrNotConnected
	}

	acked, err := drv.DisableLocalEcho(ctx)
	if err != nil {
		return fmt.Errorf("echo handshake failed: %w", err)
	}

	ts.mutex.Lock()
	session.EchoDisabled = acked
	session.EchoDegraded = !acked
	ts.mutex.Unlock()

	if !acked {
		ts.publish(model.EventEchoDegraded, session, model.SeverityWarning, model.JSONObject{
			"detail": "terminal keeps local echo, typed characters will appear twice",
		})
	}
	return nil
}

// publishSpeedOutcome reports whether the link settled at the terminal
// maximum speed or stayed below it.
func (ts *TerminalService) publishSpeedOutcome(session *model.TerminalSession, settings driver.LinkSettings, info *driver.TerminalInfo) {
	upgradable := settings.Kind == driver.LinkSerial && settings.IsAuto() && settings.AllowUpgrade
	if !upgradable || info.MaxSpeed <= videotex.Speed1200 {
		return
	}

	data := model.JSONObject{
		"speed":     session.Speed,
		"max_speed": info.MaxSpeed,
	}

	if session.Speed >= info.MaxSpeed {
		data["applied"] = true
		ts.publish(model.EventSpeedUpgraded, session, model.SeverityInfo, data)
		return
	}

	data["applied"] = false
	ts.mutex.Lock()
	session.SpeedDegraded = true
	ts.mutex.Unlock()
	ts.publish(model.EventUpgradeDegrade, session, model.SeverityWarning, data)
}

// failSession marks the session failed and reports the wrapped error
func (ts *TerminalService) failSession(session *model.TerminalSession, err error) error {
	ts.mutex.Lock()
	now := time.Now()
	session.Status = model.SessionStatusFailed
	session.ClosedAt = &now
	session.LastError = err.Error()
	ts.mutex.Unlock()

	ts.publish(model.EventSessionFailed, session, model.SeverityError, model.JSONObject{
		"error": err.Error(),
	})
	ts.auditLogger.LogSessionOpened(session.ID.String(), string(session.Settings.Kind), session.Settings.Address(), 0, false)

	ts.logger.Error("Terminal session failed",
		zap.String("session_id", session.ID.String()),
		zap.Error(err),
	)
	return err
}

// handleInput receives framed terminal input that no protocol wait
// consumed and turns it into session events.
func (ts *TerminalService) handleInput(event []byte) {
	ts.mutex.RLock()
	session := ts.session
	ts.mutex.RUnlock()
	if session == nil {
		return
	}

	if key := videotex.ParseFunctionKey(event); key != videotex.KeyNone {
		ts.publish(model.EventKeyPressed, session, model.SeverityInfo, model.JSONObject{
			"key":      key.String(),
			"key_code": int(byte(key)),
		})
		return
	}

	ts.publish(model.EventInputReceived, session, model.SeverityInfo, model.JSONObject{
		"hex":  fmt.Sprintf("%x", event),
		"text": printable(event),
		"size": len(event),
	})
}

// publish sends an event for the given session to the sink
func (ts *TerminalService) publish(eventType model.EventType, session *model.TerminalSession, severity string, data model.JSONObject) {
	if ts.events == nil {
		return
	}
	ts.events.Publish(model.NewSessionEvent(eventType, session.ID, severity, data))
}

// requireDriver returns the active driver or the not-connected error
func (ts *TerminalService) requireDriver() (driver.TerminalDriver, error) {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if ts.drv == nil {
		return nil, minitel.ErrNotConnected
	}
	return ts.drv, nil
}

// simpleOp runs a no-argument driver command under the write deadline
func (ts *TerminalService) simpleOp(ctx context.Context, op func(context.Context, driver.TerminalDriver) error) error {
	drv, err := ts.requireDriver()
	if err != nil {
		return err
	}
	ctx, cancel := ts.opContext(ctx)
	defer cancel()
	return op(ctx, drv)
}

// opContext bounds one output operation with the configured write
// timeout
func (ts *TerminalService) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ts.config.Terminal.WriteTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, ts.config.Terminal.WriteTimeout)
}

// currentSessionID returns the active session id as a string, empty
// when none exists
func (ts *TerminalService) currentSessionID() string {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if ts.session == nil {
		return ""
	}
	return ts.session.ID.String()
}

// sessionCopy snapshots the current session under the read lock
func (ts *TerminalService) sessionCopy() *model.TerminalSession {
	ts.mutex.RLock()
	defer ts.mutex.RUnlock()

	if ts.session == nil {
		return nil
	}
	copied := *ts.session
	return &copied
}

// singleRune parses the one-character string used by repeat operations
func singleRune(s string) (rune, error) {
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, fmt.Errorf("%w: char must be exactly one character, got %q", minitel.ErrValidation, s)
	}
	return runes[0], nil
}

// printable renders the ASCII characters of an input event, masking
// control bytes
func printable(event []byte) string {
	out := make([]byte, len(event))
	for i, b := range event {
		if b >= 0x20 && b <= 0x7E {
			out[i] = b
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// Data Transfer Objects

// OpenRequest overrides the configured link defaults for one session
type OpenRequest struct {
	Link         string `json:"link,omitempty"`
	Port         string `json:"port,omitempty"`
	Host         string `json:"host,omitempty"`
	TCPPort      int    `json:"tcp_port,omitempty"`
	Speed        string `json:"speed,omitempty"`
	AllowUpgrade *bool  `json:"allow_upgrade,omitempty"`
	DisableEcho  *bool  `json:"disable_echo,omitempty"`
}
