// internal/service/discovery_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/discovery"
	"minitel-service/internal/discovery/serial"
	"minitel-service/internal/discovery/tcp"
	"minitel-service/internal/discovery/usb"
	"minitel-service/internal/driver/minitel"
	"minitel-service/internal/utils"
	"minitel-service/pkg/driver"
)

const (
	// usbAdapterBoost is added to a USB-attached serial port's
	// confidence when a known bridge chip was seen on the bus.
	usbAdapterBoost = 0.15
	maxConfidence   = 0.99
)

// DiscoveryService locates candidate terminal links
type DiscoveryService struct {
	scannerManager *discovery.ScannerManager
	config         *config.Config
	logger         *utils.ServiceLogger
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(cfg *config.Config, logger *zap.Logger) *DiscoveryService {
	ds := &DiscoveryService{
		scannerManager: discovery.NewScannerManager(logger),
		config:         cfg,
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}

	ds.initializeScanners(logger)

	return ds
}

// initializeScanners registers the scanners enabled by configuration
func (ds *DiscoveryService) initializeScanners(logger *zap.Logger) {
	if !ds.config.Discovery.Enabled {
		ds.logger.Info("Discovery disabled by configuration")
		return
	}

	if serialScanner := serial.NewScanner(logger); serialScanner.IsAvailable() {
		ds.scannerManager.Register(serialScanner)
	}

	if ds.config.Discovery.USBEnabled {
		if usbScanner := usb.NewScanner(logger, nil); usbScanner.IsAvailable() {
			ds.scannerManager.Register(usbScanner)
		}
	}

	// The TCP scanner only probes the bridge endpoint named in the
	// terminal configuration; there is no network sweep.
	if ds.config.Terminal.Host != "" {
		tcpScanner := tcp.NewScanner(logger,
			ds.config.Terminal.Host,
			ds.config.Terminal.TCPPort,
			ds.config.Discovery.ProbeTimeout,
		)
		if tcpScanner.IsAvailable() {
			ds.scannerManager.Register(tcpScanner)
		}
	}

	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", ds.scannerManager.AvailableKinds()),
	)
}

// ScanPorts runs a fresh scan and returns ranked candidate links
func (ds *DiscoveryService) ScanPorts(ctx context.Context, req *ScanRequest) ([]*DiscoveredPort, error) {
	kind := "all"
	if req != nil && req.Kind != "" {
		kind = req.Kind
	}

	ds.logger.Info("Starting link scan", zap.String("kind", kind))

	var ports []*discovery.DiscoveredPort
	var err error

	switch kind {
	case "all":
		ports, err = ds.scannerManager.ScanAll(ctx)
	case "serial", "usb", "tcp":
		ports, err = ds.scannerManager.ScanByKind(ctx, kind)
	default:
		return nil, fmt.Errorf("%w: unsupported scan kind %q", minitel.ErrValidation, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	result := ds.rankPorts(ports)

	ds.logger.Info("Link scan completed",
		zap.Int("ports_found", len(result)),
		zap.String("kind", kind),
	)

	return result, nil
}

// Ports returns the cached scan result, running a first scan when
// nothing has been cached yet
func (ds *DiscoveryService) Ports(ctx context.Context) ([]*DiscoveredPort, time.Time, error) {
	cached, scannedAt := ds.scannerManager.LastResult()
	if scannedAt.IsZero() {
		ports, err := ds.ScanPorts(ctx, nil)
		if err != nil {
			return nil, time.Time{}, err
		}
		_, scannedAt = ds.scannerManager.LastResult()
		return ports, scannedAt, nil
	}

	return ds.rankPorts(cached), scannedAt, nil
}

// AvailableScanners lists the registered scanner kinds
func (ds *DiscoveryService) AvailableScanners() []string {
	return ds.scannerManager.AvailableKinds()
}

// RunPeriodicScans blocks rescanning in the background until ctx is
// done. It returns immediately when periodic scanning is disabled.
func (ds *DiscoveryService) RunPeriodicScans(ctx context.Context) {
	if !ds.config.Discovery.Enabled || ds.config.Discovery.ScanInterval <= 0 {
		return
	}

	ds.logger.Info("Starting periodic link scans",
		zap.Duration("interval", ds.config.Discovery.ScanInterval),
	)
	ds.scannerManager.RunPeriodic(ctx, ds.config.Discovery.ScanInterval)
}

// rankPorts converts scanner results to service DTOs, cross-references
// USB adapters against serial ports, and orders by confidence
func (ds *DiscoveryService) rankPorts(ports []*discovery.DiscoveredPort) []*DiscoveredPort {
	result := make([]*DiscoveredPort, len(ports))
	for i, port := range ports {
		result[i] = convertToServiceDTO(port)
	}

	annotateAdapters(result)

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Confidence != result[j].Confidence {
			return result[i].Confidence > result[j].Confidence
		}
		return result[i].Port < result[j].Port
	})

	return result
}

// convertToServiceDTO flattens a scanner result for the HTTP layer
func convertToServiceDTO(port *discovery.DiscoveredPort) *DiscoveredPort {
	speed := config.SpeedAuto
	if port.Settings.Speed != driver.SpeedAuto {
		speed = strconv.Itoa(port.Settings.Speed)
	}

	return &DiscoveredPort{
		Link:         string(port.Settings.Kind),
		Port:         port.Settings.Port,
		Host:         port.Settings.Host,
		TCPPort:      port.Settings.TCPPort,
		Speed:        speed,
		Description:  port.Description,
		Adapter:      port.Adapter,
		SerialNumber: port.SerialNumber,
		Confidence:   port.Confidence,
		Source:       port.Source,
	}
}

// annotateAdapters raises the confidence of USB-attached serial ports
// when a bridge chip was found on the bus. The USB scanner cannot tell
// which device path belongs to which adapter, so the chip name is only
// copied over when a single adapter is present.
func annotateAdapters(ports []*DiscoveredPort) {
	var adapters []*DiscoveredPort
	for _, port := range ports {
		if port.Source == "usb" {
			adapters = append(adapters, port)
		}
	}
	if len(adapters) == 0 {
		return
	}

	for _, port := range ports {
		if port.Source != "serial" || !isUSBSerialPath(port.Port) {
			continue
		}

		port.Confidence += usbAdapterBoost
		if port.Confidence > maxConfidence {
			port.Confidence = maxConfidence
		}
		if port.Adapter == "" && len(adapters) == 1 {
			port.Adapter = adapters[0].Adapter
		}
	}
}

// isUSBSerialPath reports whether a device path belongs to a USB adapter
func isUSBSerialPath(path string) bool {
	prefixes := []string{"/dev/ttyUSB", "/dev/ttyACM", "/dev/cu.usbserial", "/dev/cu.usbmodem"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// DTOs for Discovery Service

// ScanRequest represents a link scan request
type ScanRequest struct {
	Kind string `json:"kind"` // all, serial, usb, tcp
}

// DiscoveredPort represents a candidate terminal link
type DiscoveredPort struct {
	Link         string  `json:"link"`
	Port         string  `json:"port,omitempty"`
	Host         string  `json:"host,omitempty"`
	TCPPort      int     `json:"tcp_port,omitempty"`
	Speed        string  `json:"speed"`
	Description  string  `json:"description"`
	Adapter      string  `json:"adapter,omitempty"`
	SerialNumber string  `json:"serial_number,omitempty"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
}
