// internal/discovery/serial/scanner.go
package serial

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"minitel-service/internal/discovery"
	"minitel-service/pkg/driver"
)

// portClass ranks a device path pattern by how likely a terminal DIN
// cable sits behind it
type portClass struct {
	prefix     string
	confidence float64
	detail     string
}

// Scanner enumerates local serial ports
type Scanner struct {
	logger  *zap.Logger
	classes []portClass
}

// NewScanner creates a new serial port scanner
func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{
		logger:  logger.With(zap.String("scanner", "serial")),
		classes: platformClasses(),
	}
}

// Kind returns the scanner kind identifier
func (s *Scanner) Kind() string {
	return "serial"
}

// IsAvailable checks if serial enumeration works on this platform
func (s *Scanner) IsAvailable() bool {
	return len(s.classes) > 0
}

// Scan lists the serial ports present on the host. Ports are only
// enumerated, never opened.
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	s.logger.Debug("Starting serial port scan")

	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var discovered []*discovery.DiscoveredPort
	for _, port := range ports {
		select {
		case <-ctx.Done():
			return discovered, ctx.Err()
		default:
		}

		class, ok := s.classify(port)
		if !ok {
			s.logger.Debug("Port skipped by pattern filter", zap.String("port", port))
			continue
		}

		discovered = append(discovered, &discovery.DiscoveredPort{
			Settings: driver.LinkSettings{
				Kind:         driver.LinkSerial,
				Port:         port,
				Speed:        driver.SpeedAuto,
				AllowUpgrade: true,
			},
			Description: class.detail,
			Confidence:  class.confidence,
			Source:      s.Kind(),
		})
	}

	s.logger.Debug("Serial scan completed", zap.Int("ports_found", len(discovered)))
	return discovered, nil
}

// classify matches a device path against the platform patterns
func (s *Scanner) classify(port string) (portClass, bool) {
	for _, class := range s.classes {
		if strings.HasPrefix(port, class.prefix) {
			return class, true
		}
	}
	return portClass{}, false
}

// platformClasses returns the device path patterns for the current OS
func platformClasses() []portClass {
	switch runtime.GOOS {
	case "linux":
		return []portClass{
			{prefix: "/dev/ttyUSB", confidence: 0.6, detail: "USB serial adapter"},
			{prefix: "/dev/ttyACM", confidence: 0.5, detail: "USB CDC-ACM adapter"},
			{prefix: "/dev/ttyS", confidence: 0.2, detail: "on-board serial port"},
		}
	case "darwin":
		return []portClass{
			{prefix: "/dev/cu.usbserial", confidence: 0.6, detail: "USB serial adapter"},
			{prefix: "/dev/cu.usbmodem", confidence: 0.5, detail: "USB CDC-ACM adapter"},
			{prefix: "/dev/tty.usbserial", confidence: 0.4, detail: "USB serial adapter (tty node)"},
		}
	case "windows":
		return []portClass{
			{prefix: "COM", confidence: 0.4, detail: "serial port"},
		}
	default:
		return nil
	}
}
