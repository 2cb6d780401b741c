// internal/transport/bridge.go
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"minitel-service/pkg/driver"
)

// BridgeConnection reaches the terminal through a ser2net-style raw TCP
// bridge. The bridge pins the physical line parameters, so the baud
// passed to Open is nominal only.
type BridgeConnection struct {
	host        string
	tcpPort     int
	dialTimeout time.Duration
	logger      *zap.Logger

	mutex    sync.RWMutex
	conn     net.Conn
	isOpen   bool
	consumer func([]byte)
	done     chan struct{}

	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	openedAt     time.Time
	lastActivity atomic.Int64 // unix nanos
}

// NewBridgeConnection creates a TCP bridge connection. Nothing is dialed
// until Open.
func NewBridgeConnection(host string, tcpPort int, dialTimeout time.Duration, logger *zap.Logger) *BridgeConnection {
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	return &BridgeConnection{
		host:        host,
		tcpPort:     tcpPort,
		dialTimeout: dialTimeout,
		logger: logger.With(
			zap.String("link", "tcp"),
			zap.String("host", host),
			zap.Int("tcp_port", tcpPort),
		),
	}
}

// Open dials the bridge and starts the receive pump. The baud argument
// is recorded for logging only.
func (bc *BridgeConnection) Open(ctx context.Context, baud int) error {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if bc.isOpen {
		return ErrAlreadyOpen
	}

	dialer := &net.Dialer{
		Timeout:   bc.dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	address := net.JoinHostPort(bc.host, fmt.Sprintf("%d", bc.tcpPort))
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		bc.logger.Error("Failed to dial terminal bridge", zap.Error(err))
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(30 * time.Second)
		tcpConn.SetNoDelay(true)
	}

	bc.conn = conn
	bc.isOpen = true
	bc.done = make(chan struct{})
	bc.openedAt = time.Now()
	bc.lastActivity.Store(time.Now().UnixNano())

	go bc.readLoop(conn, bc.done)

	bc.logger.Info("Terminal bridge connected",
		zap.Int("nominal_baud", baud),
	)
	return nil
}

// Close closes the socket and waits for the receive pump.
func (bc *BridgeConnection) Close() error {
	bc.mutex.Lock()
	if !bc.isOpen || bc.conn == nil {
		bc.mutex.Unlock()
		return nil
	}

	bc.isOpen = false
	conn := bc.conn
	done := bc.done
	bc.conn = nil
	bc.mutex.Unlock()

	err := conn.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		bc.logger.Warn("Receive pump did not stop in time")
	}

	if err != nil {
		bc.logger.Error("Failed to close bridge connection", zap.Error(err))
		return fmt.Errorf("failed to close bridge connection: %w", err)
	}

	bc.logger.Info("Terminal bridge closed")
	return nil
}

// IsOpen returns whether the connection is open.
func (bc *BridgeConnection) IsOpen() bool {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return bc.isOpen
}

// Write sends data over the bridge.
func (bc *BridgeConnection) Write(ctx context.Context, data []byte) error {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if !bc.isOpen || bc.conn == nil {
		return ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		bc.conn.SetWriteDeadline(deadline)
	} else {
		bc.conn.SetWriteDeadline(time.Now().Add(30 * time.Second))
	}

	n, err := bc.conn.Write(data)
	if err != nil {
		bc.logger.Error("Bridge write failed", zap.Error(err))
		return fmt.Errorf("failed to write to bridge: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	bc.bytesWritten.Add(int64(n))
	bc.lastActivity.Store(time.Now().UnixNano())

	bc.logger.Debug("Data written to bridge", zap.Int("bytes_written", n))
	return nil
}

// Attach registers the receive consumer. Must be called before Open.
func (bc *BridgeConnection) Attach(consumer func([]byte)) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	bc.consumer = consumer
}

// Kind returns the link kind.
func (bc *BridgeConnection) Kind() driver.LinkKind {
	return driver.LinkTCP
}

// SupportsBaudChange reports that the bridge pins the line speed.
func (bc *BridgeConnection) SupportsBaudChange() bool {
	return false
}

// Stats returns a snapshot of the connection counters.
func (bc *BridgeConnection) Stats() LinkStats {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	stats := LinkStats{
		BytesWritten: bc.bytesWritten.Load(),
		BytesRead:    bc.bytesRead.Load(),
		IsConnected:  bc.isOpen,
	}
	if !bc.openedAt.IsZero() {
		opened := bc.openedAt
		stats.OpenedAt = &opened
	}
	if nanos := bc.lastActivity.Load(); nanos != 0 {
		last := time.Unix(0, nanos)
		stats.LastActivity = &last
	}
	return stats
}

// readLoop pumps received bytes to the attached consumer until the
// socket closes.
func (bc *BridgeConnection) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			bc.mutex.RLock()
			open := bc.isOpen
			bc.mutex.RUnlock()
			if open {
				bc.logger.Error("Bridge read failed", zap.Error(err))
			}
			return
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		bc.bytesRead.Add(int64(n))
		bc.lastActivity.Store(time.Now().UnixNano())

		bc.mutex.RLock()
		consumer := bc.consumer
		open := bc.isOpen
		bc.mutex.RUnlock()

		if !open {
			return
		}
		if consumer != nil {
			consumer(chunk)
		}
	}
}
