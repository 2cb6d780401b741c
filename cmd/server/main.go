// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "minitel-service/docs"
	"minitel-service/internal/config"
	"minitel-service/internal/handler"
	"minitel-service/internal/repository"
	"minitel-service/internal/routes"
	"minitel-service/internal/service"
	"minitel-service/internal/transport"
	"minitel-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	// Event pipeline
	journal  repository.EventJournal
	eventBus *handler.EventBus

	// Services
	terminalService  *service.TerminalService
	discoveryService *service.DiscoveryService

	// Background work lifecycle
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// @title Minitel Service API
// @version 1.0.0
// @description HTTP and WebSocket service driving a Minitel videotex terminal over a serial line or a ser2net bridge

// @contact.name Minitel Service Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8091
// @BasePath /api/v1
func main() {
	// Initialize application
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create service logger
	serviceLogger := utils.NewServiceLogger(logger, "minitel-service")
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	bgCtx, bgCancel := context.WithCancel(context.Background())

	app := &Application{
		config:   cfg,
		logger:   logger,
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}

	// Initialize components
	app.initializeEventPipeline()
	app.initializeServices()

	if err := app.initializeServer(); err != nil {
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return app, nil
}

// initializeEventPipeline creates the journal and starts the event bus
func (app *Application) initializeEventPipeline() {
	app.journal = repository.NewEventJournal(app.config.Events.JournalSize, app.logger)
	app.eventBus = handler.NewEventBus(app.journal, app.logger)
	go app.eventBus.Start()

	app.logger.Info("Event pipeline initialized",
		zap.Int("journal_size", app.config.Events.JournalSize),
	)
}

// initializeServices creates service instances
func (app *Application) initializeServices() {
	// Link factory with the built-in serial and tcp builders
	factory := transport.NewFactory(app.logger)

	app.terminalService = service.NewTerminalService(
		factory,
		app.eventBus,
		app.config,
		app.logger,
	)

	app.discoveryService = service.NewDiscoveryService(app.config, app.logger)

	app.logger.Info("Services initialized successfully")
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() error {
	// Create router
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.journal,
		app.eventBus,
		app.terminalService,
		app.discoveryService,
	)

	// Setup router with all routes
	router := routerManager.SetupRouter()

	// Create HTTP server
	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)

	return nil
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	// Periodic link discovery; returns immediately unless configured
	go app.discoveryService.RunPeriodicScans(app.bgCtx)

	// Open the configured link at startup when requested
	if app.config.Terminal.AutoConnect {
		go app.autoConnect()
	}

	app.logger.Info("Background services started")
}

// autoConnect opens the configured link once at startup. Failure leaves
// the service running; the session can be opened later through the API.
func (app *Application) autoConnect() {
	ctx, cancel := context.WithTimeout(app.bgCtx, 30*time.Second)
	defer cancel()

	session, err := app.terminalService.Open(ctx, &service.OpenRequest{})
	if err != nil {
		app.logger.Warn("Startup auto-connect failed",
			zap.String("link", app.config.Terminal.Link),
			zap.Error(err),
		)
		return
	}

	app.logger.Info("Startup auto-connect succeeded",
		zap.String("session_id", session.ID.String()),
		zap.Int("speed", session.Speed),
	)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	// Create channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for signal
	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	// Perform graceful shutdown
	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "minitel-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Stop background work
	app.bgCancel()

	// Close the terminal session first so the link is released cleanly
	// and the closed event still reaches subscribers.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := app.terminalService.Close(ctx, "service shutdown"); err != nil && !errors.Is(err, service.ErrNoSession) {
		app.logger.Error("Terminal session close error", zap.Error(err))
	}
	cancel()

	// Shutdown HTTP server
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	// Nothing publishes once the session and server are down
	app.eventBus.Stop()

	app.logger.Info("Application shutdown completed")

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

func (app *Application) Start() error {
	// Start server in goroutine
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Start background services
	app.startBackgroundServices()

	// Wait for interrupt signal
	app.waitForShutdown()

	return nil
}
