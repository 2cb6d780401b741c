// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/handler"
	"minitel-service/internal/middleware"
	"minitel-service/internal/repository"
	"minitel-service/internal/service"
	"minitel-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	journal          repository.EventJournal
	eventBus         *handler.EventBus
	terminalService  *service.TerminalService
	discoveryService *service.DiscoveryService
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	journal repository.EventJournal,
	eventBus *handler.EventBus,
	terminalService *service.TerminalService,
	discoveryService *service.DiscoveryService,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		journal:          journal,
		eventBus:         eventBus,
		terminalService:  terminalService,
		discoveryService: discoveryService,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	// Set Gin mode
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Create Gin engine
	router := gin.New()

	// Add middleware
	r.addMiddleware(router)

	// Add routes
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	// Recovery middleware
	router.Use(middleware.RecoveryMiddleware(r.logger))

	// Request ID middleware
	router.Use(middleware.RequestIDMiddleware())

	// Logging middleware
	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	// CORS middleware
	router.Use(middleware.CORSMiddleware(&r.config.Server))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	// Create handlers
	healthHandler := handler.NewHealthHandler(r.terminalService, r.config, r.logger)
	terminalHandler := handler.NewTerminalHandler(r.terminalService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	eventHandler := handler.NewEventHandler(r.journal, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.terminalService, r.eventBus, &r.config.WebSocket, r.logger)

	// Health check routes (no version prefix)
	healthHandler.RegisterRoutes(router.Group(""))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	terminalHandler.RegisterRoutes(apiV1)
	discoveryHandler.RegisterRoutes(apiV1)
	eventHandler.RegisterRoutes(apiV1)

	// WebSocket routes
	wsHandler.RegisterRoutes(router.Group("/ws"))

	// Documentation routes stay off production deployments
	if !r.config.IsProduction() {
		r.addDocumentationRoutes(router)
	}

	r.logger.Info("All routes configured successfully")
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Swagger redirect for convenience
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
