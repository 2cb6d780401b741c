// internal/service/discovery_service_test.go
package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/discovery"
	"minitel-service/internal/driver/minitel"
	"minitel-service/pkg/driver"
)

// fakeScanner returns canned discovery results
type fakeScanner struct {
	mu        sync.Mutex
	kind      string
	available bool
	ports     []*discovery.DiscoveredPort
	err       error
	scans     int
}

func (s *fakeScanner) Scan(ctx context.Context) ([]*discovery.DiscoveredPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scans++
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*discovery.DiscoveredPort, len(s.ports))
	copy(out, s.ports)
	return out, nil
}

func (s *fakeScanner) Kind() string      { return s.kind }
func (s *fakeScanner) IsAvailable() bool { return s.available }

func (s *fakeScanner) scanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

func serialCandidate(port string, confidence float64) *discovery.DiscoveredPort {
	return &discovery.DiscoveredPort{
		Settings: driver.LinkSettings{
			Kind:         driver.LinkSerial,
			Port:         port,
			Speed:        driver.SpeedAuto,
			AllowUpgrade: true,
		},
		Description: "Serial port " + port,
		Confidence:  confidence,
		Source:      "serial",
	}
}

func usbAdapter(chip string) *discovery.DiscoveredPort {
	return &discovery.DiscoveredPort{
		Settings: driver.LinkSettings{
			Kind:         driver.LinkSerial,
			Speed:        driver.SpeedAuto,
			AllowUpgrade: true,
		},
		Description: chip + " USB-serial bridge",
		Adapter:     chip,
		Confidence:  0.5,
		Source:      "usb",
	}
}

// newDiscoveryService builds a service with discovery disabled so no
// host scanner registers, then injects the given fakes
func newDiscoveryService(t *testing.T, scanners ...*fakeScanner) *DiscoveryService {
	t.Helper()

	cfg := &config.Config{
		Discovery: config.DiscoveryConfig{Enabled: false},
	}
	ds := NewDiscoveryService(cfg, zap.NewNop())
	for _, scanner := range scanners {
		ds.scannerManager.Register(scanner)
	}
	return ds
}

func TestScanPortsMergesAndRanks(t *testing.T) {
	serialFake := &fakeScanner{kind: "serial", available: true, ports: []*discovery.DiscoveredPort{
		serialCandidate("/dev/ttyS0", 0.3),
		serialCandidate("/dev/ttyUSB0", 0.6),
	}}
	usbFake := &fakeScanner{kind: "usb", available: true, ports: []*discovery.DiscoveredPort{
		usbAdapter("FTDI FT232"),
	}}
	ds := newDiscoveryService(t, serialFake, usbFake)

	ports, err := ds.ScanPorts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, ports, 3)

	// The USB-attached serial port is boosted above the bare adapter
	// entry and inherits its chip name.
	assert.Equal(t, "/dev/ttyUSB0", ports[0].Port)
	assert.InDelta(t, 0.75, ports[0].Confidence, 1e-9)
	assert.Equal(t, "FTDI FT232", ports[0].Adapter)

	assert.Equal(t, "usb", ports[1].Source)
	assert.Equal(t, "/dev/ttyS0", ports[2].Port)
	assert.InDelta(t, 0.3, ports[2].Confidence, 1e-9)
}

func TestScanPortsByKindRunsOnlyThatScanner(t *testing.T) {
	serialFake := &fakeScanner{kind: "serial", available: true, ports: []*discovery.DiscoveredPort{
		serialCandidate("/dev/ttyS0", 0.3),
	}}
	usbFake := &fakeScanner{kind: "usb", available: true, ports: []*discovery.DiscoveredPort{
		usbAdapter("CP2102"),
	}}
	ds := newDiscoveryService(t, serialFake, usbFake)

	ports, err := ds.ScanPorts(context.Background(), &ScanRequest{Kind: "serial"})
	require.NoError(t, err)
	require.Len(t, ports, 1)
	assert.Equal(t, "/dev/ttyS0", ports[0].Port)
	assert.Zero(t, usbFake.scanCount())
}

func TestScanPortsRejectsUnknownKind(t *testing.T) {
	ds := newDiscoveryService(t)

	_, err := ds.ScanPorts(context.Background(), &ScanRequest{Kind: "bluetooth"})
	assert.ErrorIs(t, err, minitel.ErrValidation)
}

func TestScanPortsReportsScannerFailure(t *testing.T) {
	broken := &fakeScanner{kind: "serial", available: true, err: errors.New("enumeration failed")}
	ds := newDiscoveryService(t, broken)

	_, err := ds.ScanPorts(context.Background(), &ScanRequest{Kind: "serial"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, minitel.ErrValidation)
}

func TestPortsRunsFirstScanThenServesCache(t *testing.T) {
	serialFake := &fakeScanner{kind: "serial", available: true, ports: []*discovery.DiscoveredPort{
		serialCandidate("/dev/ttyS0", 0.3),
	}}
	ds := newDiscoveryService(t, serialFake)

	ports, scannedAt, err := ds.Ports(context.Background())
	require.NoError(t, err)
	assert.Len(t, ports, 1)
	assert.False(t, scannedAt.IsZero())
	assert.Equal(t, 1, serialFake.scanCount())

	// The second call serves the cached result without rescanning.
	again, secondAt, err := ds.Ports(context.Background())
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, scannedAt, secondAt)
	assert.Equal(t, 1, serialFake.scanCount())
}

func TestDiscoveryDisabledHasNoScanners(t *testing.T) {
	ds := newDiscoveryService(t)

	assert.Empty(t, ds.AvailableScanners())

	ports, err := ds.ScanPorts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ports)
}

func TestAvailableScannersSkipsUnavailable(t *testing.T) {
	ds := newDiscoveryService(t,
		&fakeScanner{kind: "serial", available: true},
		&fakeScanner{kind: "usb", available: false},
	)

	assert.Equal(t, []string{"serial"}, ds.AvailableScanners())
}

func TestRunPeriodicScansReturnsWhenDisabled(t *testing.T) {
	ds := newDiscoveryService(t)

	done := make(chan struct{})
	go func() {
		ds.RunPeriodicScans(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodicScans did not return with discovery disabled")
	}
}

func TestAnnotateAdaptersBoostsAndCaps(t *testing.T) {
	ports := []*DiscoveredPort{
		{Link: "serial", Port: "/dev/ttyUSB0", Source: "serial", Confidence: 0.9},
		{Link: "serial", Port: "/dev/ttyS0", Source: "serial", Confidence: 0.3},
		{Link: "serial", Source: "usb", Adapter: "PL2303", Confidence: 0.8},
	}

	annotateAdapters(ports)

	// Boosted and capped below certainty.
	assert.InDelta(t, maxConfidence, ports[0].Confidence, 1e-9)
	assert.Equal(t, "PL2303", ports[0].Adapter)

	// Motherboard UART path is not a USB adapter.
	assert.InDelta(t, 0.3, ports[1].Confidence, 1e-9)
	assert.Empty(t, ports[1].Adapter)
}

func TestAnnotateAdaptersSkipsNameWhenAmbiguous(t *testing.T) {
	ports := []*DiscoveredPort{
		{Link: "serial", Port: "/dev/ttyUSB0", Source: "serial", Confidence: 0.6},
		{Link: "serial", Source: "usb", Adapter: "FT232", Confidence: 0.8},
		{Link: "serial", Source: "usb", Adapter: "CP2102", Confidence: 0.8},
	}

	annotateAdapters(ports)

	// Two adapters on the bus: the boost applies but no chip name can
	// be attributed to the port.
	assert.InDelta(t, 0.75, ports[0].Confidence, 1e-9)
	assert.Empty(t, ports[0].Adapter)
}

func TestConvertToServiceDTOSpeed(t *testing.T) {
	auto := convertToServiceDTO(serialCandidate("/dev/ttyUSB0", 0.5))
	assert.Equal(t, config.SpeedAuto, auto.Speed)

	fixed := serialCandidate("/dev/ttyUSB0", 0.5)
	fixed.Settings.Speed = 1200
	assert.Equal(t, "1200", convertToServiceDTO(fixed).Speed)
}

func TestIsUSBSerialPath(t *testing.T) {
	assert.True(t, isUSBSerialPath("/dev/ttyUSB0"))
	assert.True(t, isUSBSerialPath("/dev/ttyACM1"))
	assert.True(t, isUSBSerialPath("/dev/cu.usbserial-1410"))
	assert.False(t, isUSBSerialPath("/dev/ttyS0"))
	assert.False(t, isUSBSerialPath("/dev/cu.Bluetooth-Incoming-Port"))
}
