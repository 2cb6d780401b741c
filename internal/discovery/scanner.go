// internal/discovery/scanner.go
package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"minitel-service/pkg/driver"
)

// LinkScanner probes one kind of medium for candidate terminal links
type LinkScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredPort, error)
	Kind() string
	IsAvailable() bool
}

// DiscoveredPort represents a candidate link to reach a terminal.
// Settings can be passed straight to the connect endpoint; Confidence
// ranks how likely the port is to have a terminal DIN cable behind it.
type DiscoveredPort struct {
	Settings     driver.LinkSettings `json:"settings"`
	Description  string              `json:"description"`
	Adapter      string              `json:"adapter,omitempty"`
	SerialNumber string              `json:"serial_number,omitempty"`
	Confidence   float64             `json:"confidence"`
	Source       string              `json:"source"`
}

// ScannerManager runs the registered scanners and keeps the last
// result. Scanners never open a port that the active session holds;
// they only enumerate.
type ScannerManager struct {
	scanners map[string]LinkScanner
	logger   *zap.Logger

	mu         sync.RWMutex
	lastResult []*DiscoveredPort
	lastScan   time.Time
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]LinkScanner),
		logger:   logger,
	}
}

// Register registers a link scanner
func (sm *ScannerManager) Register(scanner LinkScanner) {
	kind := scanner.Kind()
	sm.mu.Lock()
	sm.scanners[kind] = scanner
	sm.mu.Unlock()
	sm.logger.Info("Scanner registered", zap.String("kind", kind))
}

// ScanAll runs every available scanner in parallel and returns the
// merged candidates sorted by confidence, best first.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredPort, error) {
	sm.mu.RLock()
	scanners := make([]LinkScanner, 0, len(sm.scanners))
	for _, scanner := range sm.scanners {
		scanners = append(scanners, scanner)
	}
	sm.mu.RUnlock()

	var (
		wg     sync.WaitGroup
		gather sync.Mutex
		merged []*DiscoveredPort
	)

	for _, scanner := range scanners {
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("kind", scanner.Kind()))
			continue
		}

		wg.Add(1)
		go func(scanner LinkScanner) {
			defer wg.Done()

			ports, err := scanner.Scan(ctx)
			if err != nil {
				sm.logger.Error("Scanner failed",
					zap.String("kind", scanner.Kind()),
					zap.Error(err),
				)
				return
			}

			gather.Lock()
			merged = append(merged, ports...)
			gather.Unlock()

			sm.logger.Info("Scanner completed",
				zap.String("kind", scanner.Kind()),
				zap.Int("ports_found", len(ports)),
			)
		}(scanner)
	}
	wg.Wait()

	sortByConfidence(merged)

	sm.mu.Lock()
	sm.lastResult = merged
	sm.lastScan = time.Now()
	sm.mu.Unlock()

	return merged, nil
}

// ScanByKind runs one specific scanner
func (sm *ScannerManager) ScanByKind(ctx context.Context, kind string) ([]*DiscoveredPort, error) {
	sm.mu.RLock()
	scanner, exists := sm.scanners[kind]
	sm.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("scanner kind not found: %s", kind)
	}
	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", kind)
	}

	ports, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sortByConfidence(ports)
	return ports, nil
}

// AvailableKinds returns the kinds of the registered scanners that can
// run on this host
func (sm *ScannerManager) AvailableKinds() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var available []string
	for kind, scanner := range sm.scanners {
		if scanner.IsAvailable() {
			available = append(available, kind)
		}
	}
	sort.Strings(available)
	return available
}

// LastResult returns the cached result of the most recent full scan
// and when it ran. The time is zero when no scan has run yet.
func (sm *ScannerManager) LastResult() ([]*DiscoveredPort, time.Time) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.lastResult, sm.lastScan
}

// RunPeriodic rescans at the given interval until the context ends.
// Run it on its own goroutine.
func (sm *ScannerManager) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := sm.ScanAll(ctx); err != nil {
				sm.logger.Warn("Periodic scan failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// sortByConfidence orders candidates best first, then by address for a
// stable listing
func sortByConfidence(ports []*DiscoveredPort) {
	sort.SliceStable(ports, func(i, j int) bool {
		if ports[i].Confidence != ports[j].Confidence {
			return ports[i].Confidence > ports[j].Confidence
		}
		return ports[i].Settings.Address() < ports[j].Settings.Address()
	})
}
