// internal/driver/minitel/awaiter.go
package minitel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ReplyMatcher decides whether a framed input event satisfies a pending
// wait. Matchers run under the awaiter lock and must not call back into
// the awaiter.
type ReplyMatcher interface {
	Match(event []byte) bool
}

// MatcherFunc adapts a plain function to the ReplyMatcher interface
type MatcherFunc func(event []byte) bool

// Match implements ReplyMatcher
func (f MatcherFunc) Match(event []byte) bool {
	return f(event)
}

// pendingReply is one registered wait. The done channel is buffered so
// the delivering side never blocks.
type pendingReply struct {
	id      uint64
	matcher ReplyMatcher
	done    chan []byte
}

// replyAwaiter correlates framed input events with waiting commands.
// Waits are kept in registration order; an event goes to the oldest
// matching wait and is consumed by it. Each wait resolves exactly once:
// whichever of match, timeout or cancellation removes the entry first
// decides the outcome.
type replyAwaiter struct {
	mu      sync.Mutex
	nextID  uint64
	pending []*pendingReply
	logger  *zap.Logger
}

func newReplyAwaiter(logger *zap.Logger) *replyAwaiter {
	return &replyAwaiter{
		logger: logger,
	}
}

// Await registers a matcher and blocks until a matching event arrives,
// the timeout elapses, or the context is cancelled.
func (a *replyAwaiter) Await(ctx context.Context, matcher ReplyMatcher, timeout time.Duration) ([]byte, error) {
	entry := &pendingReply{
		matcher: matcher,
		done:    make(chan []byte, 1),
	}

	a.mu.Lock()
	a.nextID++
	entry.id = a.nextID
	a.pending = append(a.pending, entry)
	a.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-entry.done:
		return event, nil
	case <-timer.C:
		if a.remove(entry.id) {
			return nil, ErrReplyTimeout
		}
		// A matching event won the race; it is already in flight.
		return <-entry.done, nil
	case <-ctx.Done():
		if a.remove(entry.id) {
			return nil, ctx.Err()
		}
		return <-entry.done, nil
	}
}

// offer hands a framed event to the oldest matching wait. It reports
// whether the event was consumed.
func (a *replyAwaiter) offer(event []byte) bool {
	a.mu.Lock()
	for i, entry := range a.pending {
		if entry.matcher.Match(event) {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			a.mu.Unlock()

			a.logger.Debug("Reply matched pending wait",
				zap.Uint64("wait_id", entry.id),
				zap.Int("event_size", len(event)),
			)

			entry.done <- event
			return true
		}
	}
	a.mu.Unlock()

	return false
}

// remove deregisters a wait. It reports whether the entry was still
// pending, which is what makes the outcome exclusive.
func (a *replyAwaiter) remove(id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, entry := range a.pending {
		if entry.id == id {
			a.pending = append(a.pending[:i], a.pending[i+1:]...)
			return true
		}
	}
	return false
}

// pendingCount reports how many waits are registered
func (a *replyAwaiter) pendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}
