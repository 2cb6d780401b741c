// internal/transport/serial.go
package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// readChunkSize bounds one receive-pump read. Input events are a handful
// of bytes, so a small buffer keeps chunk delivery prompt.
const readChunkSize = 256

// SerialConnection drives a local serial port at 7 data bits, even
// parity, 1 stop bit.
type SerialConnection struct {
	portName string
	logger   *zap.Logger

	mutex    sync.RWMutex
	port     serial.Port
	isOpen   bool
	baud     int
	consumer func([]byte)
	done     chan struct{}

	bytesWritten atomic.Int64
	bytesRead    atomic.Int64
	openedAt     time.Time
	lastActivity atomic.Int64 // unix nanos
}

// NewSerialConnection creates a serial connection for the given device
// path. The port is not touched until Open.
func NewSerialConnection(portName string, logger *zap.Logger) *SerialConnection {
	return &SerialConnection{
		portName: portName,
		logger:   logger.With(zap.String("link", "serial"), zap.String("port", portName)),
	}
}

// Open opens the port at the given speed and starts the receive pump.
func (sc *SerialConnection) Open(ctx context.Context, baud int) error {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()

	if sc.isOpen {
		return ErrAlreadyOpen
	}
	if !videotex.IsCandidateSpeed(baud) {
		return fmt.Errorf("%w: %d", ErrUnsupportedSpeed, baud)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 7,
		Parity:   serial.EvenParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(sc.portName, mode)
	if err != nil {
		sc.logger.Error("Failed to open serial port",
			zap.Error(err),
			zap.Int("baud_rate", baud),
		)
		return fmt.Errorf("failed to open serial port %s: %w", sc.portName, err)
	}

	sc.port = port
	sc.isOpen = true
	sc.baud = baud
	sc.done = make(chan struct{})
	sc.openedAt = time.Now()
	sc.lastActivity.Store(time.Now().UnixNano())

	go sc.readLoop(port, sc.done)

	sc.logger.Info("Serial port opened",
		zap.Int("baud_rate", baud),
	)
	return nil
}

// Close closes the port and waits for the receive pump to drain so no
// chunk is delivered after Close returns.
func (sc *SerialConnection) Close() error {
	sc.mutex.Lock()
	if !sc.isOpen || sc.port == nil {
		sc.mutex.Unlock()
		return nil
	}

	sc.isOpen = false
	port := sc.port
	done := sc.done
	sc.port = nil
	sc.mutex.Unlock()

	err := port.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		sc.logger.Warn("Receive pump did not stop in time")
	}

	if err != nil {
		sc.logger.Error("Failed to close serial port", zap.Error(err))
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	sc.logger.Info("Serial port closed")
	return nil
}

// IsOpen returns whether the connection is open.
func (sc *SerialConnection) IsOpen() bool {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()
	return sc.isOpen
}

// Write sends data and blocks until the port driver flushed it out.
func (sc *SerialConnection) Write(ctx context.Context, data []byte) error {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	if !sc.isOpen || sc.port == nil {
		return ErrNotOpen
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	n, err := sc.port.Write(data)
	if err != nil {
		sc.logger.Error("Failed to write to serial port",
			zap.Error(err),
			zap.Int("bytes_to_write", len(data)),
		)
		return fmt.Errorf("failed to write to serial port: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}
	if err := sc.port.Drain(); err != nil {
		return fmt.Errorf("failed to drain serial port: %w", err)
	}

	sc.bytesWritten.Add(int64(n))
	sc.lastActivity.Store(time.Now().UnixNano())

	sc.logger.Debug("Data written to serial port",
		zap.Int("bytes_written", n),
		zap.Binary("data", data),
	)
	return nil
}

// Attach registers the receive consumer. Must be called before Open.
func (sc *SerialConnection) Attach(consumer func([]byte)) {
	sc.mutex.Lock()
	defer sc.mutex.Unlock()
	sc.consumer = consumer
}

// Kind returns the link kind.
func (sc *SerialConnection) Kind() driver.LinkKind {
	return driver.LinkSerial
}

// SupportsBaudChange reports that reopening at another speed is honored.
func (sc *SerialConnection) SupportsBaudChange() bool {
	return true
}

// Stats returns a snapshot of the connection counters.
func (sc *SerialConnection) Stats() LinkStats {
	sc.mutex.RLock()
	defer sc.mutex.RUnlock()

	stats := LinkStats{
		BytesWritten: sc.bytesWritten.Load(),
		BytesRead:    sc.bytesRead.Load(),
		IsConnected:  sc.isOpen,
	}
	if !sc.openedAt.IsZero() {
		opened := sc.openedAt
		stats.OpenedAt = &opened
	}
	if nanos := sc.lastActivity.Load(); nanos != 0 {
		last := time.Unix(0, nanos)
		stats.LastActivity = &last
	}
	return stats
}

// readLoop pumps received bytes to the attached consumer until the port
// is closed. Closing the port from Close unblocks the pending Read.
func (sc *SerialConnection) readLoop(port serial.Port, done chan struct{}) {
	defer close(done)

	buf := make([]byte, readChunkSize)
	for {
		n, err := port.Read(buf)
		if err != nil {
			sc.mutex.RLock()
			open := sc.isOpen
			sc.mutex.RUnlock()
			if open {
				sc.logger.Error("Serial read failed", zap.Error(err))
			}
			return
		}
		if n == 0 {
			continue
		}

		chunk := make([]byte, n)
		copy(chunk, buf[:n])

		sc.bytesRead.Add(int64(n))
		sc.lastActivity.Store(time.Now().UnixNano())

		sc.mutex.RLock()
		consumer := sc.consumer
		open := sc.isOpen
		sc.mutex.RUnlock()

		if !open {
			return
		}
		if consumer != nil {
			consumer(chunk)
		}
	}
}
