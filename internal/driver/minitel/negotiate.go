// internal/driver/minitel/negotiate.go
package minitel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// Negotiation timing. Fixed-speed mode waits longer for the single
// probe because there is no next candidate to move on to.
const (
	probeTimeoutAuto  = time.Second
	probeTimeoutFixed = 3 * time.Second
	speedAckTimeout   = 500 * time.Millisecond
	speedSettleDelay  = 150 * time.Millisecond
)

// speedAckMatcher recognizes the PRO2 speed status answer. The answer
// may share an event with echoed probe bytes, so it is searched rather
// than anchored.
func speedAckMatcher(event []byte) bool {
	return bytes.Contains(event, VIDEOTEX_COMMANDS.SPEED_ACK)
}

// negotiate drives the link from probing to an identified terminal at
// its final speed. Any returned error is terminal for this attempt; the
// caller moves the driver to the failed state.
func (d *Driver) negotiate(ctx context.Context) error {
	candidates := videotex.CandidateSpeeds
	probeTimeout := probeTimeoutAuto
	if !d.settings.IsAuto() {
		candidates = []int{d.settings.Speed}
		probeTimeout = probeTimeoutFixed
	}

	var info *driver.TerminalInfo
	var speed int

	for _, candidate := range candidates {
		d.logger.LogNegotiation(string(driver.StateProbing), candidate)

		identified, err := d.probe(ctx, candidate, probeTimeout)
		if err == nil {
			info = identified
			speed = candidate
			d.logger.LogProbe(candidate, true, nil)
			break
		}

		d.logger.LogProbe(candidate, false, err)

		if closeErr := d.conn.Close(); closeErr != nil {
			d.logger.Warn("Failed to close link after probe", zap.Error(closeErr))
		}
		d.framer.reset()

		// Only a silent terminal moves on to the next candidate.
		// Transport failures and cancellation end the attempt.
		if !errors.Is(err, ErrReplyTimeout) {
			return err
		}
	}

	if info == nil {
		return fmt.Errorf("%w: no identification reply at %v baud", ErrConnectionFailed, candidates)
	}

	d.setIdentity(info, speed)
	d.setState(driver.StateIdentified)
	d.logger.Info("Terminal identified",
		zap.String("name", info.Name),
		zap.String("maker", info.Maker),
		zap.String("code", info.Code()),
		zap.Int("speed", speed),
		zap.Int("max_speed", info.MaxSpeed),
	)

	// Probes at mismatched speeds were rendered as garbage characters;
	// wipe the screen before anything draws.
	if err := d.send(ctx, VIDEOTEX_COMMANDS.CLEAR_SCREEN); err != nil {
		return fmt.Errorf("%w: clear after identification: %v", ErrConnectionFailed, err)
	}

	if d.shouldUpgrade(info, speed) {
		if err := d.upgrade(ctx, speed, info.MaxSpeed); err != nil {
			return err
		}
	}

	return nil
}

// probe opens the link at one candidate speed and asks the terminal to
// identify itself
func (d *Driver) probe(ctx context.Context, baud int, timeout time.Duration) (*driver.TerminalInfo, error) {
	if err := d.conn.Open(ctx, baud); err != nil {
		return nil, fmt.Errorf("%w: open at %d baud: %v", ErrConnectionFailed, baud, err)
	}

	if err := d.send(ctx, VIDEOTEX_COMMANDS.IDENT_REQUEST); err != nil {
		return nil, fmt.Errorf("%w: identification request: %v", ErrConnectionFailed, err)
	}

	reply, err := d.awaiter.Await(ctx, MatcherFunc(identReplyMatcher), timeout)
	if err != nil {
		return nil, err
	}

	return parseIdentity(reply), nil
}

// shouldUpgrade reports whether a speed upgrade will be attempted after
// identification
func (d *Driver) shouldUpgrade(info *driver.TerminalInfo, speed int) bool {
	if !d.settings.IsAuto() || !d.settings.AllowUpgrade {
		return false
	}
	if !d.conn.SupportsBaudChange() {
		d.logger.Info("Link cannot change speed, keeping negotiated rate",
			zap.Int("speed", speed),
		)
		return false
	}
	return info.MaxSpeed > speed
}

// upgrade reprograms the terminal modem to the target speed and reopens
// the link to match. A terminal that never acknowledges keeps the link
// at the negotiated speed; only a link that cannot be reopened at all
// fails the connection.
func (d *Driver) upgrade(ctx context.Context, current, target int) error {
	d.setState(driver.StateUpgrading)
	d.logger.LogNegotiation(string(driver.StateUpgrading), target)

	seq, err := SpeedSequence(target)
	if err != nil {
		d.logger.Warn("No program sequence for target speed, keeping current",
			zap.Int("target", target),
			zap.Error(err),
		)
		return nil
	}

	if err := d.send(ctx, seq); err != nil {
		return fmt.Errorf("%w: speed program: %v", ErrConnectionFailed, err)
	}

	if _, err := d.awaiter.Await(ctx, MatcherFunc(speedAckMatcher), speedAckTimeout); err != nil {
		if errors.Is(err, ErrReplyTimeout) {
			d.logger.Warn("Speed upgrade not acknowledged, staying at negotiated speed",
				zap.Int("current", current),
				zap.Int("target", target),
			)
			return nil
		}
		return err
	}

	// The terminal switches its modem right after answering; give it a
	// moment before reopening.
	select {
	case <-time.After(speedSettleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := d.conn.Close(); err != nil {
		d.logger.Warn("Failed to close link before reopen", zap.Error(err))
	}
	d.framer.reset()

	if err := d.conn.Open(ctx, target); err != nil {
		d.logger.Warn("Reopen at upgraded speed failed, recovering at negotiated speed",
			zap.Int("target", target),
			zap.Error(err),
		)
		if err := d.conn.Open(ctx, current); err != nil {
			return fmt.Errorf("%w: reopen after failed upgrade: %v", ErrConnectionFailed, err)
		}
		return nil
	}

	d.setSpeed(target)
	d.setState(driver.StateReopened)
	d.logger.LogNegotiation(string(driver.StateReopened), target)
	return nil
}
