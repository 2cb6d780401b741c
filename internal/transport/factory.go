// internal/transport/factory.go
package transport

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"minitel-service/pkg/driver"
	"minitel-service/pkg/videotex"
)

// Builder creates a connection from validated link settings.
type Builder func(settings driver.LinkSettings, logger *zap.Logger) (Connection, error)

// Factory manages connection builder registration and creation, keyed by
// link kind.
type Factory struct {
	builders map[driver.LinkKind]Builder
	mu       sync.RWMutex
	logger   *zap.Logger
}

// NewFactory creates a factory with the built-in link kinds registered.
func NewFactory(logger *zap.Logger) *Factory {
	f := &Factory{
		builders: make(map[driver.LinkKind]Builder),
		logger:   logger,
	}
	f.Register(driver.LinkSerial, buildSerial)
	f.Register(driver.LinkTCP, buildBridge)
	return f
}

// Register registers a connection builder for a link kind.
func (f *Factory) Register(kind driver.LinkKind, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.builders[kind] = builder
	f.logger.Info("Link builder registered", zap.String("kind", string(kind)))
}

// Create validates the settings and builds the matching connection.
func (f *Factory) Create(settings driver.LinkSettings) (Connection, error) {
	if err := Validate(settings); err != nil {
		return nil, err
	}

	f.mu.RLock()
	builder, exists := f.builders[settings.Kind]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported link kind: %s", settings.Kind)
	}

	f.logger.Info("Creating terminal link",
		zap.String("kind", string(settings.Kind)),
		zap.String("address", settings.Address()),
		zap.Int("speed", settings.Speed),
		zap.Bool("allow_upgrade", settings.AllowUpgrade),
	)

	return builder(settings, f.logger)
}

// Kinds lists the registered link kinds.
func (f *Factory) Kinds() []driver.LinkKind {
	f.mu.RLock()
	defer f.mu.RUnlock()

	kinds := make([]driver.LinkKind, 0, len(f.builders))
	for kind := range f.builders {
		kinds = append(kinds, kind)
	}
	return kinds
}

// Validate checks link settings before any hardware is touched.
func Validate(settings driver.LinkSettings) error {
	switch settings.Kind {
	case driver.LinkSerial:
		if settings.Port == "" {
			return fmt.Errorf("serial link requires a port")
		}
	case driver.LinkTCP:
		if settings.Host == "" {
			return fmt.Errorf("tcp link requires a host")
		}
		if settings.TCPPort < 1 || settings.TCPPort > 65535 {
			return fmt.Errorf("invalid tcp port: %d", settings.TCPPort)
		}
	default:
		return fmt.Errorf("unsupported link kind: %s", settings.Kind)
	}

	if !settings.IsAuto() && !videotex.IsCandidateSpeed(settings.Speed) {
		return fmt.Errorf("%w: %d", ErrUnsupportedSpeed, settings.Speed)
	}

	return nil
}

func buildSerial(settings driver.LinkSettings, logger *zap.Logger) (Connection, error) {
	return NewSerialConnection(settings.Port, logger), nil
}

func buildBridge(settings driver.LinkSettings, logger *zap.Logger) (Connection, error) {
	return NewBridgeConnection(settings.Host, settings.TCPPort, 10*time.Second, logger), nil
}
