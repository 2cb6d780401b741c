// internal/discovery/usb/scanner.go
package usb

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"minitel-service/internal/discovery"
	"minitel-service/pkg/driver"
)

// Scanner identifies USB-serial bridge adapters. It reports the bridge
// hardware itself; the matching device path comes from the serial
// scanner, so entries carry an empty port and exist to rank candidates.
type Scanner struct {
	logger       *zap.Logger
	knownDevices *DeviceDatabase
	config       *Config
}

// Config for USB scanner
type Config struct {
	ScanTimeout   time.Duration `json:"scan_timeout"`
	EnableDebug   bool          `json:"enable_debug"`
	SkipPermCheck bool          `json:"skip_permission_check"`
}

// NewScanner creates a new USB scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{
			ScanTimeout: 10 * time.Second,
			EnableDebug: false,
		}
	}

	return &Scanner{
		logger:       logger.With(zap.String("scanner", "usb")),
		knownDevices: NewDeviceDatabase(),
		config:       config,
	}
}

// Kind returns the scanner kind identifier
func (s *Scanner) Kind() string {
	return "usb"
}

// IsAvailable checks if USB enumeration is available on this system
func (s *Scanner) IsAvailable() bool {
	switch runtime.GOOS {
	case "linux", "windows":
		return true
	case "darwin":
		if !s.config.SkipPermCheck {
			s.logger.Warn("USB scanning on macOS may require additional permissions")
		}
		return true
	default:
		s.logger.Warn("USB scanning support unknown for OS", zap.String("os", runtime.GOOS))
		return false
	}
}

// Scan enumerates USB devices and reports the known bridge adapters
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	startTime := time.Now()
	s.logger.Debug("Starting USB adapter scan")

	scanCtx, cancel := context.WithTimeout(ctx, s.config.ScanTimeout)
	defer cancel()

	usbCtx := gousb.NewContext()
	defer func() {
		if err := usbCtx.Close(); err != nil {
			s.logger.Warn("Failed to close USB context", zap.Error(err))
		}
	}()

	if s.config.EnableDebug {
		usbCtx.Debug(3)
	}

	devices, err := usbCtx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return s.knownDevices.IsKnownVendor(desc.Vendor)
	})
	defer s.closeAllDevices(devices)

	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}
	if err != nil {
		// Some devices refused to open, typically a permissions issue;
		// report the ones that did.
		s.logger.Warn("Partial USB enumeration", zap.Error(err))
	}

	var discovered []*discovery.DiscoveredPort
	for _, device := range devices {
		select {
		case <-scanCtx.Done():
			return discovered, scanCtx.Err()
		default:
		}

		if port := s.processDevice(device); port != nil {
			discovered = append(discovered, port)
		}
	}

	s.logger.Debug("USB scan completed",
		zap.Int("adapters_found", len(discovered)),
		zap.Duration("scan_duration", time.Since(startTime)),
	)

	return discovered, nil
}

// processDevice maps one opened USB device to a bridge adapter entry
func (s *Scanner) processDevice(device *gousb.Device) *discovery.DiscoveredPort {
	desc := device.Desc
	if desc == nil {
		return nil
	}

	vendorInfo := s.knownDevices.GetVendorInfo(desc.Vendor)
	if vendorInfo == nil {
		return nil
	}

	chip := fmt.Sprintf("%s device %04x", vendorInfo.Name, uint16(desc.Product))
	confidence := 0.4 // known vendor, unknown product
	if productInfo := vendorInfo.GetProductInfo(desc.Product); productInfo != nil {
		chip = productInfo.Chip
		confidence = productInfo.Confidence
	}

	return &discovery.DiscoveredPort{
		Settings: driver.LinkSettings{
			Kind:         driver.LinkSerial,
			Speed:        driver.SpeedAuto,
			AllowUpgrade: true,
		},
		Description:  fmt.Sprintf("%s USB-serial bridge (bus %d addr %d)", chip, desc.Bus, desc.Address),
		Adapter:      chip,
		SerialNumber: s.serialNumber(device),
		Confidence:   confidence,
		Source:       s.Kind(),
	}
}

// serialNumber reads the device serial string, falling back to a
// synthetic identifier when the descriptor is unreadable
func (s *Scanner) serialNumber(device *gousb.Device) string {
	serial, err := device.SerialNumber()
	if err != nil || serial == "" {
		s.logger.Debug("No serial descriptor, using synthetic id", zap.Error(err))
		return fmt.Sprintf("USB-%04x%04x-%d", uint16(device.Desc.Vendor), uint16(device.Desc.Product), device.Desc.Address)
	}
	return serial
}

// closeAllDevices safely closes all opened USB devices
func (s *Scanner) closeAllDevices(devices []*gousb.Device) {
	for i, device := range devices {
		if device != nil {
			if err := device.Close(); err != nil {
				s.logger.Warn("Failed to close USB device",
					zap.Int("device_index", i),
					zap.Error(err),
				)
			}
		}
	}
}
