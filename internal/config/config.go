package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"focusboard/backend/internal/timer"
)

type Config struct {
	Port         string
	DBPath       string
	JWTSecret    string
	TokenTTL     time.Duration
	CORSOrigins  []string
	CORSMethods  []string
	CORSHeaders  []string
	LogLevel     log.Level
	TickInterval time.Duration
	HistoryLimit int
	Timer        timer.Settings
}

// Load reads configuration from defaults, an optional config file and the
// environment, in increasing order of precedence. A .env file in the working
// directory is loaded into the environment first when present.
func Load(configPath string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "./data/focusboard.db")
	v.SetDefault("jwt_secret", "change-this-secret")
	v.SetDefault("token_ttl_hours", 72)
	v.SetDefault("cors_origins", "http://localhost:5173,http://127.0.0.1:5173")
	v.SetDefault("cors_methods", "GET,POST,PUT,OPTIONS")
	v.SetDefault("cors_headers", "Authorization,Content-Type,X-Request-ID")
	v.SetDefault("log_level", "info")
	v.SetDefault("tick_interval_ms", 1000)
	v.SetDefault("history_limit", 50)
	v.SetDefault("timer.work_duration", timer.DefaultWorkDuration)
	v.SetDefault("timer.short_break_duration", timer.DefaultShortBreakDuration)
	v.SetDefault("timer.long_break_duration", timer.DefaultLongBreakDuration)
	v.SetDefault("timer.sessions_until_long_break", timer.DefaultSessionsUntilLongBreak)
	v.SetDefault("timer.auto_start_breaks", false)
	v.SetDefault("timer.auto_start_work", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	level, err := log.ParseLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, fmt.Errorf("parse log_level: %w", err)
	}

	cfg := Config{
		Port:         v.GetString("port"),
		DBPath:       v.GetString("db_path"),
		JWTSecret:    v.GetString("jwt_secret"),
		TokenTTL:     time.Duration(v.GetInt("token_ttl_hours")) * time.Hour,
		CORSOrigins:  splitList(v.GetString("cors_origins")),
		CORSMethods:  splitList(v.GetString("cors_methods")),
		CORSHeaders:  splitList(v.GetString("cors_headers")),
		LogLevel:     level,
		TickInterval: time.Duration(v.GetInt("tick_interval_ms")) * time.Millisecond,
		HistoryLimit: v.GetInt("history_limit"),
		Timer: timer.Settings{
			WorkDuration:           v.GetInt("timer.work_duration"),
			ShortBreakDuration:     v.GetInt("timer.short_break_duration"),
			LongBreakDuration:      v.GetInt("timer.long_break_duration"),
			SessionsUntilLongBreak: v.GetInt("timer.sessions_until_long_break"),
			AutoStartBreaks:        v.GetBool("timer.auto_start_breaks"),
			AutoStartWork:          v.GetBool("timer.auto_start_work"),
		},
	}

	if err := cfg.Timer.Validate(); err != nil {
		return Config{}, fmt.Errorf("timer defaults: %w", err)
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return cfg, nil
}

// NewLogger builds the process logger at the configured level.
func (c Config) NewLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           c.LogLevel,
	})
	return logger
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
