// internal/driver/minitel/awaiter_test.go
package minitel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAwaiter() *replyAwaiter {
	return newReplyAwaiter(zap.NewNop())
}

func TestAwaitReceivesMatchingEvent(t *testing.T) {
	a := newTestAwaiter()

	type outcome struct {
		event []byte
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		event, err := a.Await(context.Background(), MatcherFunc(identReplyMatcher), time.Second)
		done <- outcome{event, err}
	}()

	require.Eventually(t, func() bool { return a.pendingCount() == 1 }, time.Second, time.Millisecond)

	reply := []byte{0x01, 'C', 'v', '2', 0x04}
	assert.True(t, a.offer(reply))

	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, reply, got.event)
	assert.Zero(t, a.pendingCount())
}

func TestAwaitTimesOutAndDeregisters(t *testing.T) {
	a := newTestAwaiter()

	_, err := a.Await(context.Background(), MatcherFunc(func([]byte) bool { return true }), 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrReplyTimeout)
	assert.Zero(t, a.pendingCount())

	// Nothing is left to claim later events.
	assert.False(t, a.offer([]byte{0x01}))
}

func TestOfferIgnoresNonMatchingEvents(t *testing.T) {
	a := newTestAwaiter()

	errCh := make(chan error, 1)
	go func() {
		_, err := a.Await(context.Background(), MatcherFunc(identReplyMatcher), 100*time.Millisecond)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return a.pendingCount() == 1 }, time.Second, time.Millisecond)

	// A function key is not an identification reply.
	assert.False(t, a.offer([]byte{0x13, 0x41}))
	assert.Equal(t, 1, a.pendingCount())

	assert.ErrorIs(t, <-errCh, ErrReplyTimeout)
}

func TestAwaitDispatchesInRegistrationOrder(t *testing.T) {
	a := newTestAwaiter()
	matchAll := MatcherFunc(func([]byte) bool { return true })

	first := make(chan []byte, 1)
	go func() {
		event, _ := a.Await(context.Background(), matchAll, time.Second)
		first <- event
	}()
	require.Eventually(t, func() bool { return a.pendingCount() == 1 }, time.Second, time.Millisecond)

	second := make(chan []byte, 1)
	go func() {
		event, _ := a.Await(context.Background(), matchAll, time.Second)
		second <- event
	}()
	require.Eventually(t, func() bool { return a.pendingCount() == 2 }, time.Second, time.Millisecond)

	assert.True(t, a.offer([]byte("one")))
	assert.True(t, a.offer([]byte("two")))

	assert.Equal(t, []byte("one"), <-first)
	assert.Equal(t, []byte("two"), <-second)
}

func TestAwaitContextCancelled(t *testing.T) {
	a := newTestAwaiter()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := a.Await(ctx, MatcherFunc(func([]byte) bool { return true }), time.Second)
		errCh <- err
	}()

	require.Eventually(t, func() bool { return a.pendingCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Zero(t, a.pendingCount())
}
