package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	txStdLib "github.com/Thiht/transactor/stdlib"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"focusboard/backend/internal/config"
	"focusboard/backend/internal/db"
	"focusboard/backend/internal/handler"
	"focusboard/backend/internal/middleware"
	"focusboard/backend/internal/pomodoro"
	"focusboard/backend/internal/recorder"
	"focusboard/backend/internal/repository"
	"focusboard/backend/internal/router"
	"focusboard/backend/internal/service"
	"focusboard/backend/internal/ticker"
)

var (
	configPath    string
	migrationsDir string
)

var rootCmd = &cobra.Command{
	Use:          "focusboard-server",
	Short:        "Run the focusboard pomodoro API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file (yaml, json or toml)")
	rootCmd.Flags().StringVar(&migrationsDir, "migrations", "", "read migrations from this directory instead of the embedded set")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	if logger.GetLevel() > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	migrations := db.Migrations()
	if migrationsDir != "" {
		migrations = db.MigrationsFromDir(migrationsDir)
	}
	if err := db.RunMigrations(database, migrations); err != nil {
		return err
	}

	tx, dbGetter := txStdLib.NewTransactor(database, txStdLib.NestedTransactionsSavepoints)
	userRepo := repository.NewUserRepository(dbGetter)
	settingsRepo := repository.NewSettingsRepository(dbGetter)
	sessionRepo := repository.NewSessionRepository(dbGetter)

	rec := recorder.New(sessionRepo, logger.WithPrefix("recorder"))
	authService := service.NewAuthService(tx, userRepo, settingsRepo, cfg.Timer, cfg.JWTSecret, cfg.TokenTTL)
	pomodoroService := service.NewPomodoroService(tx, settingsRepo, rec, cfg.Timer, pomodoro.Options{
		TickInterval: cfg.TickInterval,
		NewTicker:    ticker.NewStdTicker,
		Logger:       logger.WithPrefix("timer"),
	}, logger)

	authHandler := handler.NewAuthHandler(authService)
	pomodoroHandler := handler.NewPomodoroHandler(pomodoroService, cfg.HistoryLimit)
	cors := middleware.CORSConfig{
		Origins: cfg.CORSOrigins,
		Methods: cfg.CORSMethods,
		Headers: cfg.CORSHeaders,
		MaxAge:  86400,
	}
	engine := router.New(authService, authHandler, pomodoroHandler, cors, logger.WithPrefix("http"))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		pomodoroService.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}
	pomodoroService.Shutdown()
	return nil
}
