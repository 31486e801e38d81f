package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "focusboard/backend/internal/errors"
	"focusboard/backend/internal/middleware"
	"focusboard/backend/internal/service"
	"focusboard/backend/internal/timer"
)

type PomodoroHandler struct {
	pomodoroService *service.PomodoroService
	historyLimit    int
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type startRequest struct {
	BaseVersion int     `json:"baseVersion"`
	TaskID      *string `json:"taskId"`
}

type updateSettingsRequest struct {
	BaseVersion int `json:"baseVersion"`
	timer.SettingsPatch
}

func NewPomodoroHandler(pomodoroService *service.PomodoroService, historyLimit int) *PomodoroHandler {
	return &PomodoroHandler{pomodoroService: pomodoroService, historyLimit: historyLimit}
}

func (h *PomodoroHandler) GetState(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeError(c, apperrors.Unauthorized(""))
		return
	}

	state, apiErr := h.pomodoroService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) Start(c *gin.Context) {
	var req startRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.TaskID != nil && *req.TaskID == "" {
		req.TaskID = nil
	}

	userID := middleware.UserID(c)
	state, apiErr := h.pomodoroService.Start(c.Request.Context(), userID, req.TaskID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) Pause(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.pomodoroService.Pause(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) Resume(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.pomodoroService.Resume(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) Stop(c *gin.Context) {
	var req versionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.pomodoroService.Stop(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errInvalidJSON)
		return
	}

	userID := middleware.UserID(c)
	state, apiErr := h.pomodoroService.UpdateSettings(c.Request.Context(), userID, service.UpdateSettingsInput{
		BaseVersion: req.BaseVersion,
		Patch:       req.SettingsPatch,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *PomodoroHandler) GetHistory(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		writeError(c, apperrors.Unauthorized(""))
		return
	}

	limit := h.historyLimit
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	history, apiErr := h.pomodoroService.GetHistory(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, history)
}

// bindOptionalJSON accepts an empty body. It writes the error response and
// returns false when the body is present but malformed.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(c, errInvalidJSON)
	return false
}
