// internal/handler/discovery_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"minitel-service/internal/service"
	"minitel-service/internal/utils"
)

// DiscoveryHandler handles link discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// RegisterRoutes registers discovery routes
func (h *DiscoveryHandler) RegisterRoutes(router *gin.RouterGroup) {
	discovery := router.Group("/discovery")
	{
		discovery.GET("/ports", h.GetPorts)
		discovery.POST("/scan", h.ScanPorts)
		discovery.GET("/scanners", h.GetScanners)
	}
}

// GetPorts returns candidate terminal links
// @Summary List candidate ports
// @Description Get the most recent scan result, scanning once when no result is cached
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{ports=[]service.DiscoveredPort,scanned_at=string}} "Ports retrieved"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/ports [get]
func (h *DiscoveryHandler) GetPorts(c *gin.Context) {
	ports, scannedAt, err := h.discoveryService.Ports(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ports retrieved", gin.H{
		"ports":      ports,
		"scanned_at": scannedAt,
	})
}

// ScanPorts runs a fresh link scan
// @Summary Scan for terminal links
// @Description Scan serial ports, USB adapters and the configured TCP bridge for candidate links
// @Tags Discovery
// @Accept json
// @Produce json
// @Param request body service.ScanRequest false "Scan kind (all, serial, usb, tcp)"
// @Success 200 {object} utils.APIResponse{data=object{ports_found=int,ports=[]service.DiscoveredPort}} "Scan completed"
// @Failure 400 {object} utils.APIResponse "Unsupported scan kind"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/scan [post]
func (h *DiscoveryHandler) ScanPorts(c *gin.Context) {
	var req service.ScanRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	ports, err := h.discoveryService.ScanPorts(c.Request.Context(), &req)
	if err != nil {
		status, code := driverStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("Failed to scan ports", zap.Error(err))
		}
		utils.ErrorResponseWithCode(c, status, code, "Failed to scan ports", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Scan completed", gin.H{
		"ports_found": len(ports),
		"ports":       ports,
	})
}

// GetScanners lists the registered scanner kinds
// @Summary List scanners
// @Description Get the discovery scanners available on this host
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{scanners=[]string}} "Scanners retrieved"
// @Router /discovery/scanners [get]
func (h *DiscoveryHandler) GetScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved", gin.H{
		"scanners": h.discoveryService.AvailableScanners(),
	})
}
