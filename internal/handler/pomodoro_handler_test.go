package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusboard/backend/internal/middleware"
)

func TestPomodoroHandler_MissingUserUsesErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewPomodoroHandler(nil, 50)
	engine := gin.New()
	engine.Use(middleware.RequestLogger(log.New(io.Discard)))
	engine.GET("/state", h.GetState)
	engine.GET("/history", h.GetHistory)

	for _, path := range []string{"/state", "/history"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set(middleware.RequestIDHeader, "req-7")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var body struct {
				Error struct {
					Code      string `json:"code"`
					Message   string `json:"message"`
					RequestID string `json:"requestId"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "unauthorized", body.Error.Code)
			assert.Equal(t, "unauthorized", body.Error.Message)
			assert.Equal(t, "req-7", body.Error.RequestID)
		})
	}
}

func TestBindOptionalJSON_RejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/bind", func(c *gin.Context) {
		var req versionRequest
		if !bindOptionalJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, req)
	})

	for name, tc := range map[string]struct {
		body   string
		status int
	}{
		"empty":     {body: "", status: http.StatusOK},
		"valid":     {body: `{"baseVersion":3}`, status: http.StatusOK},
		"malformed": {body: `{"baseVersion":`, status: http.StatusBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
