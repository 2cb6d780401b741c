// internal/handler/websocket_types_test.go
package handler

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(clientType string, buffer int) *Client {
	return &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, buffer),
		Type: clientType,
	}
}

func TestConnectionManagerEnforcesLimit(t *testing.T) {
	manager := NewConnectionManager(2)

	first := newTestClient(ClientTypeTerminal, 1)
	second := newTestClient(ClientTypeEvents, 1)
	third := newTestClient(ClientTypeEvents, 1)

	require.NoError(t, manager.Register(first))
	require.NoError(t, manager.Register(second))

	err := manager.Register(third)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection limit")

	// Freeing a slot admits the waiting client.
	manager.Unregister(first)
	assert.NoError(t, manager.Register(third))
}

func TestConnectionManagerUnlimitedWhenZero(t *testing.T) {
	manager := NewConnectionManager(0)

	for i := 0; i < 20; i++ {
		client := newTestClient(ClientTypeEvents, 1)
		client.ID = fmt.Sprintf("client-%d", i)
		require.NoError(t, manager.Register(client))
	}
	assert.Equal(t, 20, manager.GetStats().TotalConnections)
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	manager := NewConnectionManager(0)
	client := newTestClient(ClientTypeTerminal, 1)
	require.NoError(t, manager.Register(client))

	manager.Unregister(client)

	_, open := <-client.Send
	assert.False(t, open)

	// Unregistering twice must not close the channel again.
	manager.Unregister(client)
}

func TestTrySendAfterCloseIsRejected(t *testing.T) {
	client := newTestClient(ClientTypeTerminal, 4)

	assert.True(t, client.trySend([]byte("one")))
	client.closeSend()
	assert.False(t, client.trySend([]byte("two")))
}

func TestTrySendDropsWhenBacklogFull(t *testing.T) {
	client := newTestClient(ClientTypeEvents, 1)

	assert.True(t, client.trySend([]byte("fits")))
	assert.False(t, client.trySend([]byte("dropped")))

	// Draining makes room again.
	<-client.Send
	assert.True(t, client.trySend([]byte("fits again")))
}

func TestClientsByTypeFiltersClients(t *testing.T) {
	manager := NewConnectionManager(0)

	terminal := newTestClient(ClientTypeTerminal, 1)
	events1 := newTestClient(ClientTypeEvents, 1)
	events2 := newTestClient(ClientTypeEvents, 1)
	require.NoError(t, manager.Register(terminal))
	require.NoError(t, manager.Register(events1))
	require.NoError(t, manager.Register(events2))

	assert.Len(t, manager.ClientsByType(ClientTypeTerminal), 1)
	assert.Len(t, manager.ClientsByType(ClientTypeEvents), 2)
	assert.Empty(t, manager.ClientsByType("other"))
}

func TestGetStatsCountsByType(t *testing.T) {
	manager := NewConnectionManager(0)
	require.NoError(t, manager.Register(newTestClient(ClientTypeTerminal, 1)))
	require.NoError(t, manager.Register(newTestClient(ClientTypeEvents, 1)))
	require.NoError(t, manager.Register(newTestClient(ClientTypeEvents, 1)))

	stats := manager.GetStats()
	assert.Equal(t, 3, stats.TotalConnections)
	assert.Equal(t, 1, stats.ByType[ClientTypeTerminal])
	assert.Equal(t, 2, stats.ByType[ClientTypeEvents])
}
