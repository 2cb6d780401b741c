// internal/driver/minitel/framer.go
package minitel

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultInputWindow is the quiet period that closes one logical input
// event. The byte stream carries no framing, so bytes are grouped by
// arrival time: multi-byte sequences such as function keys arrive
// back-to-back, while distinct keystrokes are separated by far more
// than this. Two keys struck faster than the window merge into one
// event.
const defaultInputWindow = 50 * time.Millisecond

// inputFramer accumulates raw transport chunks and emits one event per
// quiet period. Events are first offered to the reply awaiter; only
// unclaimed events reach the application handler.
type inputFramer struct {
	mu      sync.Mutex
	window  time.Duration
	acc     []byte
	timer   *time.Timer
	handler func(event []byte)
	closed  bool

	awaiter *replyAwaiter
	logger  *zap.Logger
}

func newInputFramer(window time.Duration, awaiter *replyAwaiter, logger *zap.Logger) *inputFramer {
	if window <= 0 {
		window = defaultInputWindow
	}
	return &inputFramer{
		window:  window,
		awaiter: awaiter,
		logger:  logger,
	}
}

// setHandler installs the application callback for unclaimed events.
// Passing nil drops them.
func (f *inputFramer) setHandler(handler func(event []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
}

// feed appends a transport chunk to the open event and restarts the
// inactivity timer
func (f *inputFramer) feed(chunk []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || len(chunk) == 0 {
		return
	}

	f.acc = append(f.acc, chunk...)
	if f.timer != nil {
		f.timer.Stop()
	}
	f.timer = time.AfterFunc(f.window, f.flush)
}

// flush closes the open event and dispatches it
func (f *inputFramer) flush() {
	f.mu.Lock()
	event := f.acc
	f.acc = nil
	f.timer = nil
	handler := f.handler
	closed := f.closed
	f.mu.Unlock()

	if closed || len(event) == 0 {
		return
	}

	if f.awaiter.offer(event) {
		return
	}

	if handler != nil {
		handler(event)
		return
	}

	f.logger.Debug("Input event dropped, no handler installed",
		zap.Int("event_size", len(event)),
	)
}

// reset discards any partially accumulated event, for link teardown
func (f *inputFramer) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.acc = nil
}

// close stops the framer permanently
func (f *inputFramer) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.acc = nil
}
