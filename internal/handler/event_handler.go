// internal/handler/event_handler.go
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"minitel-service/internal/repository"
	"minitel-service/internal/utils"
)

// EventHandler serves the session event journal
type EventHandler struct {
	journal repository.EventJournal
	logger  *utils.ServiceLogger
}

// NewEventHandler creates a new event handler
func NewEventHandler(journal repository.EventJournal, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		journal: journal,
		logger:  utils.NewServiceLogger(logger, "event-handler"),
	}
}

// RegisterRoutes registers event routes
func (h *EventHandler) RegisterRoutes(router *gin.RouterGroup) {
	events := router.Group("/events")
	{
		events.GET("/recent", h.GetRecentEvents)
	}
}

// GetRecentEvents returns recent session events, newest first
// @Summary Get recent events
// @Description Get recent session events from the in-memory journal, newest first
// @Tags Events
// @Produce json
// @Param limit query int false "Maximum number of events (0 returns everything kept)" default(50)
// @Success 200 {object} utils.APIResponse{data=object{events=[]model.SessionEvent,count=int}} "Events retrieved"
// @Failure 400 {object} utils.APIResponse "Invalid limit"
// @Router /events/recent [get]
func (h *EventHandler) GetRecentEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.ErrorResponseWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR",
				"limit must be a non-negative integer", err)
			return
		}
		limit = parsed
	}

	events := h.journal.Recent(limit)

	utils.SuccessResponse(c, http.StatusOK, "Events retrieved", gin.H{
		"events": events,
		"count":  len(events),
	})
}
