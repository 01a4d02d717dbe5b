package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	JWTSecret      string

	DatabaseURL    string
	DBMaxOpenConns int
	RedisURL       string

	Points      PointsConfig
	Leaderboard LeaderboardConfig
	Notify      NotifyConfig
}

// PointsConfig holds every retry and timeout knob of the write and read paths.
type PointsConfig struct {
	CASMaxAttempts int
	CASBackoff     time.Duration

	CacheTTL time.Duration

	LockTTL      time.Duration
	LockRetry    int
	LockSleep    time.Duration
	LockWait     time.Duration
	LockWaitMode string // "deadline" or "retry"
}

type LeaderboardConfig struct {
	Size            int
	ReadSize        int
	RefreshInterval time.Duration
}

type NotifyConfig struct {
	UserPointsTopic string
	PrintConsumer   bool
}

const (
	WaitModeDeadline = "deadline"
	WaitModeRetry    = "retry"
)

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		DatabaseURL: getEnv("DATABASE_URL", buildDSN()),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Notify: NotifyConfig{
			UserPointsTopic: getEnv("NOTIFY_USER_POINTS_TOPIC", "user_points"),
		},
	}

	var err error
	if cfg.DBMaxOpenConns, err = parseInt("DB_MAX_OPEN_CONNS", "20"); err != nil {
		return nil, err
	}
	if cfg.Notify.PrintConsumer, err = parseBool("NOTIFY_PRINT_CONSUMER", "true"); err != nil {
		return nil, err
	}

	// Points
	if cfg.Points.CASMaxAttempts, err = parseInt("POINTS_CAS_MAX_ATTEMPTS", "5"); err != nil {
		return nil, err
	}
	if cfg.Points.CASBackoff, err = parseDuration("POINTS_CAS_BACKOFF", "0s"); err != nil {
		return nil, err
	}
	if cfg.Points.CacheTTL, err = parseDuration("CACHE_POINTS_TTL", "600s"); err != nil {
		return nil, err
	}
	if cfg.Points.LockTTL, err = parseDuration("CACHE_LOAD_LOCK_TTL", "3s"); err != nil {
		return nil, err
	}
	if cfg.Points.LockRetry, err = parseInt("CACHE_LOAD_LOCK_RETRY", "3"); err != nil {
		return nil, err
	}
	if cfg.Points.LockSleep, err = parseDuration("CACHE_LOAD_LOCK_SLEEP", "50ms"); err != nil {
		return nil, err
	}
	if cfg.Points.LockWait, err = parseDuration("CACHE_LOAD_LOCK_WAIT", "500ms"); err != nil {
		return nil, err
	}
	cfg.Points.LockWaitMode = getEnv("CACHE_LOAD_WAIT_MODE", WaitModeDeadline)
	if cfg.Points.LockWaitMode != WaitModeDeadline && cfg.Points.LockWaitMode != WaitModeRetry {
		return nil, fmt.Errorf("invalid CACHE_LOAD_WAIT_MODE: %q", cfg.Points.LockWaitMode)
	}

	// Leaderboard
	if cfg.Leaderboard.Size, err = parseInt("LEADERBOARD_SIZE", "20"); err != nil {
		return nil, err
	}
	if cfg.Leaderboard.ReadSize, err = parseInt("LEADERBOARD_READ_SIZE", "10"); err != nil {
		return nil, err
	}
	if cfg.Leaderboard.RefreshInterval, err = parseDuration("LEADERBOARD_REFRESH_INTERVAL", "5m"); err != nil {
		return nil, err
	}

	if cfg.Points.CASMaxAttempts < 1 {
		return nil, fmt.Errorf("POINTS_CAS_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Leaderboard.RefreshInterval <= 0 {
		return nil, fmt.Errorf("LEADERBOARD_REFRESH_INTERVAL must be positive")
	}

	return cfg, nil
}

func buildDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		os.Getenv("DB_PASS"),
		getEnv("DB_NAME", "pointboard"),
		getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key, fallback string) (bool, error) {
	b, err := strconv.ParseBool(getEnv(key, fallback))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
