// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"minitel-service/internal/config"
	"minitel-service/internal/model"
	"minitel-service/internal/service"
	"minitel-service/internal/utils"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	terminalService *service.TerminalService
	config          *config.Config
	logger          *utils.ServiceLogger
	startedAt       time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(terminalService *service.TerminalService, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		terminalService: terminalService,
		config:          config,
		logger:          utils.NewServiceLogger(logger, "health-handler"),
		startedAt:       time.Now(),
	}
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.HealthCheck)
	router.GET("/health/link", h.LinkHealthCheck)
	router.GET("/ready", h.ReadinessCheck)
	router.GET("/live", h.LivenessCheck)
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Get overall service health including the terminal link state. An idle link is healthy; the session opens on demand.
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).String(),
		Checks:    make(map[string]CheckResult),
	}

	health.Checks["link"] = h.linkCheck()

	c.JSON(http.StatusOK, health)
}

// linkCheck summarizes the terminal link for the health report
func (h *HealthHandler) linkCheck() CheckResult {
	session, err := h.terminalService.Session()
	if err != nil {
		return CheckResult{
			Status:  "idle",
			Message: "No terminal session",
		}
	}

	result := CheckResult{
		Data: map[string]interface{}{
			"session_id": session.ID,
			"state":      h.terminalService.LinkState(),
			"speed":      session.Speed,
		},
	}
	if session.Terminal != nil {
		result.Data["terminal"] = session.Terminal.Name
	}

	switch session.Status {
	case model.SessionStatusReady:
		result.Status = "healthy"
	case model.SessionStatusConnecting:
		result.Status = "connecting"
	case model.SessionStatusFailed:
		result.Status = "unhealthy"
		result.Message = session.LastError
	default:
		result.Status = "idle"
		result.Message = "Session closed"
	}

	return result
}

// LinkHealthCheck reports the terminal link in detail
// @Summary Link health check
// @Description Get the terminal link state, negotiated speed and identified terminal. Returns 200 whether or not a session is open; connection state is in the body.
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Link status"
// @Router /health/link [get]
func (h *HealthHandler) LinkHealthCheck(c *gin.Context) {
	response := gin.H{
		"connected": h.terminalService.IsConnected(),
		"state":     h.terminalService.LinkState(),
	}

	if session, err := h.terminalService.Session(); err == nil {
		response["session"] = session
		response["uptime_ms"] = session.Uptime().Milliseconds()
	}

	utils.SuccessResponse(c, http.StatusOK, "Link status", response)
}

// ReadinessCheck for Kubernetes readiness probe
// @Summary Readiness check
// @Description Check if service is ready to accept traffic
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	// The service fronts a single optional terminal; it is ready as
	// soon as it can answer HTTP.
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Accept json
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
