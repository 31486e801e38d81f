package middleware

import (
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	apperrors "focusboard/backend/internal/errors"
)

const userIDContextKey = "userID"

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	ParseToken(token string) (string, *apperrors.APIError)
}

// Auth requires a valid bearer token and stores its subject on the context.
// Rejections are logged with the request id so they can be matched against
// the access log.
func Auth(parser TokenParser, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, apiErr := bearerToken(c.GetHeader("Authorization"))
		if apiErr == nil {
			var userID string
			userID, apiErr = parser.ParseToken(token)
			if apiErr == nil {
				c.Set(userIDContextKey, userID)
				c.Next()
				return
			}
		}

		logger.Warn("request rejected",
			"requestID", RequestID(c),
			"path", c.FullPath(),
			"reason", apiErr.Message,
		)
		AbortWithError(c, apiErr)
	}
}

func bearerToken(header string) (string, *apperrors.APIError) {
	if header == "" {
		return "", apperrors.Unauthorized("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperrors.Unauthorized("invalid authorization format")
	}
	return token, nil
}

func UserID(c *gin.Context) string {
	return c.GetString(userIDContextKey)
}

// AbortWithError stops the handler chain with the error envelope.
func AbortWithError(c *gin.Context, apiErr *apperrors.APIError) {
	c.AbortWithStatusJSON(apiErr.StatusCode(), apiErr.Envelope(RequestID(c)))
}
