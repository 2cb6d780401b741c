// internal/transport/transport.go
package transport

import (
	"context"
	"errors"
	"time"

	"minitel-service/pkg/driver"
)

// Connection is the raw byte pipe between the driver and the terminal.
// Received bytes are pushed as chunks to the single consumer registered
// with Attach; the consumer must be attached before Open.
type Connection interface {
	// Open establishes the link at the given speed. Opening an already
	// open connection is an error so a stale speed can never survive a
	// renegotiation unnoticed.
	Open(ctx context.Context, baud int) error

	// Close tears the link down and stops the receive pump. Closing an
	// already closed connection is a no-op.
	Close() error

	IsOpen() bool

	// Write sends data and blocks until the bytes are flushed to the
	// line.
	Write(ctx context.Context, data []byte) error

	// Attach registers the single consumer for received byte chunks.
	Attach(consumer func(chunk []byte))

	Kind() driver.LinkKind

	// SupportsBaudChange reports whether Open honors the baud argument.
	// Bridged links run at whatever the remote end configured.
	SupportsBaudChange() bool

	Stats() LinkStats
}

// Link lifecycle errors. Failures to reach the hardware are wrapped
// separately so callers can tell a mis-used lifecycle from a dead line.
var (
	ErrAlreadyOpen      = errors.New("link already open")
	ErrNotOpen          = errors.New("link not open")
	ErrUnsupportedSpeed = errors.New("unsupported link speed")
)

// LinkStats is a snapshot of per-connection counters.
type LinkStats struct {
	BytesWritten int64      `json:"bytes_written"`
	BytesRead    int64      `json:"bytes_read"`
	IsConnected  bool       `json:"is_connected"`
	OpenedAt     *time.Time `json:"opened_at,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}
