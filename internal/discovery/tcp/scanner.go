// internal/discovery/tcp/scanner.go
package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"minitel-service/internal/discovery"
	"minitel-service/pkg/driver"
)

// Scanner probes a configured serial-over-TCP bridge endpoint. It does
// not sweep the network; it only verifies that the endpoint from the
// service configuration accepts connections.
type Scanner struct {
	logger  *zap.Logger
	host    string
	port    int
	timeout time.Duration
}

// NewScanner creates a TCP bridge scanner for the configured endpoint
func NewScanner(logger *zap.Logger, host string, port int, timeout time.Duration) *Scanner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &Scanner{
		logger:  logger.With(zap.String("scanner", "tcp")),
		host:    host,
		port:    port,
		timeout: timeout,
	}
}

// Kind returns the scanner kind identifier
func (s *Scanner) Kind() string {
	return "tcp"
}

// IsAvailable reports whether a bridge endpoint is configured
func (s *Scanner) IsAvailable() bool {
	return s.host != "" && s.port > 0
}

// Scan dials the configured bridge and reports it when reachable
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	address := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.logger.Debug("Probing TCP bridge", zap.String("address", address))

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		// Unreachable is a scan result, not a scanner failure.
		s.logger.Debug("TCP bridge not reachable",
			zap.String("address", address),
			zap.Error(err),
		)
		return nil, nil
	}
	if err := conn.Close(); err != nil {
		s.logger.Warn("Failed to close probe connection", zap.Error(err))
	}

	port := &discovery.DiscoveredPort{
		Settings: driver.LinkSettings{
			Kind:         driver.LinkTCP,
			Host:         s.host,
			TCPPort:      s.port,
			Speed:        driver.SpeedAuto,
			AllowUpgrade: true,
		},
		Description: fmt.Sprintf("Serial-over-TCP bridge at %s", address),
		Confidence:  0.9,
		Source:      s.Kind(),
	}

	return []*discovery.DiscoveredPort{port}, nil
}
