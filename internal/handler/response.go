package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "focusboard/backend/internal/errors"
	"focusboard/backend/internal/middleware"
)

var errInvalidJSON = apperrors.BadRequest("invalid_json", "invalid request body")

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.JSON(apiErr.StatusCode(), apiErr.Envelope(middleware.RequestID(c)))
}
