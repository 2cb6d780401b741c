// internal/handler/terminal_handler.go
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"minitel-service/internal/driver/minitel"
	"minitel-service/internal/model"
	"minitel-service/internal/service"
	"minitel-service/internal/utils"
)

// TerminalHandler handles terminal session and screen HTTP requests
type TerminalHandler struct {
	terminalService *service.TerminalService
	logger          *utils.ServiceLogger
}

// NewTerminalHandler creates a new terminal handler
func NewTerminalHandler(terminalService *service.TerminalService, logger *zap.Logger) *TerminalHandler {
	return &TerminalHandler{
		terminalService: terminalService,
		logger:          utils.NewServiceLogger(logger, "terminal-handler"),
	}
}

// RegisterRoutes registers terminal-related routes
func (h *TerminalHandler) RegisterRoutes(router *gin.RouterGroup) {
	terminal := router.Group("/terminal")
	{
		terminal.GET("", h.GetSession)
		terminal.POST("/connect", h.Connect)
		terminal.POST("/disconnect", h.Disconnect)

		// Screen operations
		terminal.POST("/text", h.WriteText)
		terminal.POST("/text-at", h.PrintAt)
		terminal.POST("/repeat", h.WriteRepeated)
		terminal.POST("/format", h.SetFormat)
		terminal.POST("/clear", h.Clear)
		terminal.POST("/home", h.Home)
		terminal.POST("/beep", h.Beep)
		terminal.POST("/newline", h.NewLine)
		terminal.POST("/batch", h.ExecuteBatch)

		cursor := terminal.Group("/cursor")
		{
			cursor.POST("", h.MoveCursor)
			cursor.POST("/visibility", h.SetCursorVisibility)
		}

		terminal.POST("/echo/disable", h.DisableEcho)
	}
}

// Connect opens the terminal session
// @Summary Connect to the terminal
// @Description Open the singleton terminal session, probing and negotiating the line speed
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body service.OpenRequest false "Link overrides (defaults come from configuration)"
// @Success 201 {object} utils.APIResponse{data=model.TerminalSession} "Terminal connected successfully"
// @Failure 400 {object} utils.APIResponse "Invalid link settings"
// @Failure 409 {object} utils.APIResponse "A session already owns the link"
// @Failure 502 {object} utils.APIResponse "Terminal did not respond"
// @Router /terminal/connect [post]
func (h *TerminalHandler) Connect(c *gin.Context) {
	var req service.OpenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	session, err := h.terminalService.Open(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, "Failed to connect terminal", err)
		return
	}

	h.logger.Info("Terminal connected",
		zap.String("session_id", session.ID.String()),
		zap.Int("speed", session.Speed),
	)
	utils.SuccessResponse(c, http.StatusCreated, "Terminal connected successfully", session)
}

// Disconnect closes the terminal session
// @Summary Disconnect from the terminal
// @Description Close the active terminal session and release the link
// @Tags Terminal
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.TerminalSession} "Terminal disconnected successfully"
// @Failure 404 {object} utils.APIResponse "No active session"
// @Router /terminal/disconnect [post]
func (h *TerminalHandler) Disconnect(c *gin.Context) {
	session, err := h.terminalService.Close(c.Request.Context(), "client request")
	if err != nil {
		h.respondError(c, "Failed to disconnect terminal", err)
		return
	}

	h.logger.Info("Terminal disconnected", zap.String("session_id", session.ID.String()))
	utils.SuccessResponse(c, http.StatusOK, "Terminal disconnected successfully", session)
}

// GetSession returns the active session and terminal identity
// @Summary Get terminal session
// @Description Get the active session, identified terminal info and link state
// @Tags Terminal
// @Accept json
// @Produce json
// @Success 200 {object} utils.APIResponse "Session retrieved successfully"
// @Failure 404 {object} utils.APIResponse "No active session"
// @Router /terminal [get]
func (h *TerminalHandler) GetSession(c *gin.Context) {
	session, err := h.terminalService.Session()
	if err != nil {
		h.respondError(c, "No terminal session", err)
		return
	}

	response := gin.H{
		"session":    session,
		"link_state": h.terminalService.LinkState(),
		"formats":    h.terminalService.Formats(),
	}

	utils.SuccessResponse(c, http.StatusOK, "Session retrieved successfully", response)
}

// WriteText writes text at the current cursor position
// @Summary Write text
// @Description Transcode and write text at the current cursor position
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body WriteTextRequest true "Text to write"
// @Success 200 {object} utils.APIResponse "Text written successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/text [post]
func (h *TerminalHandler) WriteText(c *gin.Context) {
	var req WriteTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.terminalService.WriteText(c.Request.Context(), req.Text); err != nil {
		h.respondError(c, "Failed to write text", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Text written successfully", gin.H{"length": len(req.Text)})
}

// PrintAt writes text at an explicit screen position
// @Summary Write text at position
// @Description Move the cursor to row/col and write text there
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body PrintAtRequest true "Position and text"
// @Success 200 {object} utils.APIResponse "Text written successfully"
// @Failure 400 {object} utils.APIResponse "Position out of range"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/text-at [post]
func (h *TerminalHandler) PrintAt(c *gin.Context) {
	var req PrintAtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.terminalService.PrintAt(c.Request.Context(), req.Row, req.Col, req.Text); err != nil {
		h.respondError(c, "Failed to write text at position", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Text written successfully", gin.H{
		"row": req.Row,
		"col": req.Col,
	})
}

// WriteRepeated writes one character repeated count times
// @Summary Repeat a character
// @Description Write a single character repeated count times using REP compression
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body RepeatRequest true "Character and count"
// @Success 200 {object} utils.APIResponse "Characters written successfully"
// @Failure 400 {object} utils.APIResponse "Invalid character or count"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/repeat [post]
func (h *TerminalHandler) WriteRepeated(c *gin.Context) {
	var req RepeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	chars := []rune(req.Char)
	if len(chars) != 1 {
		utils.ErrorResponseWithCode(c, http.StatusBadRequest, "VALIDATION_ERROR",
			"char must be exactly one character", nil)
		return
	}

	if err := h.terminalService.WriteRepeated(c.Request.Context(), chars[0], req.Count); err != nil {
		h.respondError(c, "Failed to write repeated character", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Characters written successfully", gin.H{"count": req.Count})
}

// SetFormat applies a named text attribute
// @Summary Set text format
// @Description Apply a named attribute (blink, double height, inverted, ...) to subsequent text
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body FormatRequest true "Format name"
// @Success 200 {object} utils.APIResponse "Format applied successfully"
// @Failure 400 {object} utils.APIResponse "Unknown format name"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/format [post]
func (h *TerminalHandler) SetFormat(c *gin.Context) {
	var req FormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.terminalService.SetFormat(c.Request.Context(), req.Format); err != nil {
		h.respondError(c, "Failed to set format", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Format applied successfully", gin.H{"format": req.Format})
}

// MoveCursor positions the cursor
// @Summary Move cursor
// @Description Move the cursor to an absolute row/col position
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body MoveCursorRequest true "Target position"
// @Success 200 {object} utils.APIResponse "Cursor moved successfully"
// @Failure 400 {object} utils.APIResponse "Position out of range"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/cursor [post]
func (h *TerminalHandler) MoveCursor(c *gin.Context) {
	var req MoveCursorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.terminalService.MoveCursor(c.Request.Context(), req.Row, req.Col); err != nil {
		h.respondError(c, "Failed to move cursor", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Cursor moved successfully", gin.H{
		"row": req.Row,
		"col": req.Col,
	})
}

// SetCursorVisibility shows or hides the cursor
// @Summary Set cursor visibility
// @Description Show or hide the blinking cursor
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body CursorVisibilityRequest true "Visibility flag"
// @Success 200 {object} utils.APIResponse "Cursor visibility updated"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/cursor/visibility [post]
func (h *TerminalHandler) SetCursorVisibility(c *gin.Context) {
	var req CursorVisibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.terminalService.SetCursorVisible(c.Request.Context(), *req.Visible); err != nil {
		h.respondError(c, "Failed to set cursor visibility", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Cursor visibility updated", gin.H{"visible": *req.Visible})
}

// Clear wipes the screen
// @Summary Clear screen
// @Description Clear the screen and home the cursor
// @Tags Terminal
// @Produce json
// @Success 200 {object} utils.APIResponse "Screen cleared"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/clear [post]
func (h *TerminalHandler) Clear(c *gin.Context) {
	if err := h.terminalService.Clear(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to clear screen", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Screen cleared", nil)
}

// Home moves the cursor to the top-left corner
func (h *TerminalHandler) Home(c *gin.Context) {
	if err := h.terminalService.Home(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to home cursor", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Cursor homed", nil)
}

// Beep sounds the terminal buzzer
// @Summary Beep
// @Description Sound the terminal buzzer
// @Tags Terminal
// @Produce json
// @Success 200 {object} utils.APIResponse "Beep sent"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Router /terminal/beep [post]
func (h *TerminalHandler) Beep(c *gin.Context) {
	if err := h.terminalService.Beep(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to beep", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Beep sent", nil)
}

// NewLine moves the cursor to the start of the next row
func (h *TerminalHandler) NewLine(c *gin.Context) {
	if err := h.terminalService.NewLine(c.Request.Context()); err != nil {
		h.respondError(c, "Failed to write newline", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Newline written", nil)
}

// DisableEcho runs the local echo handshake
// @Summary Disable local echo
// @Description Ask the terminal to stop echoing keyboard input to its own screen
// @Tags Terminal
// @Produce json
// @Success 200 {object} utils.APIResponse "Echo handshake completed"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Failure 502 {object} utils.APIResponse "Handshake failed"
// @Router /terminal/echo/disable [post]
func (h *TerminalHandler) DisableEcho(c *gin.Context) {
	acked, err := h.terminalService.DisableEcho(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to disable echo", err)
		return
	}

	message := "Echo disabled successfully"
	if !acked {
		message = "Echo handshake not acknowledged"
	}
	utils.SuccessResponse(c, http.StatusOK, message, gin.H{"echo_disabled": acked})
}

// ExecuteBatch runs a sequence of screen operations
// @Summary Execute a batch of operations
// @Description Run screen operations in order, stopping at the first failure
// @Tags Terminal
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Operations to execute"
// @Success 200 {object} utils.APIResponse{data=model.BatchResult} "Batch executed successfully"
// @Failure 400 {object} utils.APIResponse "Invalid operation"
// @Failure 409 {object} utils.APIResponse "No terminal connected"
// @Failure 502 {object} utils.APIResponse "Write failed mid-batch"
// @Router /terminal/batch [post]
func (h *TerminalHandler) ExecuteBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.terminalService.ExecuteBatch(c.Request.Context(), req.Operations)
	if err != nil {
		message := "Batch execution failed"
		if result != nil && result.FailedAt != nil {
			message = fmt.Sprintf("Batch failed at operation %d", *result.FailedAt)
		}
		h.respondError(c, message, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Batch executed successfully", result)
}

// respondError maps a service error onto the API error envelope
func (h *TerminalHandler) respondError(c *gin.Context, message string, err error) {
	status, code := driverStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	utils.ErrorResponseWithCode(c, status, code, message, err)
}

// driverStatus maps the driver error taxonomy to HTTP status codes.
// Validation problems are the client's fault, session conflicts are
// state conflicts, and anything the terminal side broke is a bad
// gateway since this service fronts the physical link.
func driverStatus(err error) (int, string) {
	switch {
	case errors.Is(err, minitel.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, service.ErrNoSession):
		return http.StatusNotFound, "SESSION_NOT_FOUND"
	case errors.Is(err, minitel.ErrAlreadyConnected):
		return http.StatusConflict, "ALREADY_CONNECTED"
	case errors.Is(err, minitel.ErrNotConnected):
		return http.StatusConflict, "NOT_CONNECTED"
	case errors.Is(err, minitel.ErrReplyTimeout):
		return http.StatusBadGateway, "REPLY_TIMEOUT"
	case errors.Is(err, minitel.ErrConnectionFailed):
		return http.StatusBadGateway, "CONNECTION_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// Request DTOs

// WriteTextRequest carries text for the sequential write path
type WriteTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// PrintAtRequest positions the cursor before writing. Row and col are
// plain ints because row 0 addresses the status row; the driver checks
// the range.
type PrintAtRequest struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text" binding:"required"`
}

// RepeatRequest writes one character count times
type RepeatRequest struct {
	Char  string `json:"char" binding:"required"`
	Count int    `json:"count" binding:"required"`
}

// FormatRequest names a text attribute to apply
type FormatRequest struct {
	Format string `json:"format" binding:"required"`
}

// MoveCursorRequest targets an absolute screen position
type MoveCursorRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// CursorVisibilityRequest shows or hides the cursor
type CursorVisibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// BatchRequest carries an ordered list of screen operations
type BatchRequest struct {
	Operations []model.BatchOperation `json:"operations" binding:"required"`
}
