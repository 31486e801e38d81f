package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	Origins []string
	Methods []string
	Headers []string
	MaxAge  int
}

// DefaultCORSConfig allows the methods and headers the pomodoro API uses.
func DefaultCORSConfig(origins []string) CORSConfig {
	return CORSConfig{
		Origins: origins,
		Methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		Headers: []string{"Authorization", "Content-Type", RequestIDHeader},
		MaxAge:  86400,
	}
}

func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		allowed[strings.TrimSpace(origin)] = struct{}{}
	}
	_, wildcard := allowed["*"]
	methods := strings.Join(cfg.Methods, ",")
	headers := strings.Join(cfg.Headers, ",")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if wildcard {
				c.Header("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Expose-Headers", RequestIDHeader)
		c.Header("Access-Control-Max-Age", maxAge)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
