package router

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"focusboard/backend/internal/handler"
	"focusboard/backend/internal/middleware"
	"focusboard/backend/internal/service"
)

func New(
	authService *service.AuthService,
	authHandler *handler.AuthHandler,
	pomodoroHandler *handler.PomodoroHandler,
	cors middleware.CORSConfig,
	logger *log.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(cors))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	pomodoro := api.Group("/pomodoro")
	pomodoro.Use(middleware.Auth(authService, logger))
	pomodoro.GET("/state", pomodoroHandler.GetState)
	pomodoro.POST("/start", pomodoroHandler.Start)
	pomodoro.POST("/pause", pomodoroHandler.Pause)
	pomodoro.POST("/resume", pomodoroHandler.Resume)
	pomodoro.POST("/stop", pomodoroHandler.Stop)
	pomodoro.PUT("/settings", pomodoroHandler.UpdateSettings)
	pomodoro.GET("/history", pomodoroHandler.GetHistory)

	return engine
}
