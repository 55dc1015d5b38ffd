package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Draw Settings
	DrawExpiryMinutes int
	MaxEntriesPerDraw int
	SealDelayMillis   int

	// Simulation Settings
	CanvasWidth     float64
	CanvasHeight    float64
	BallRadius      float64
	SwirlMultiplier float64
	SnapshotHz      int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/playtombola?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Draw Settings
		DrawExpiryMinutes: getEnvInt("DRAW_EXPIRY_MINUTES", 60),
		MaxEntriesPerDraw: getEnvInt("MAX_ENTRIES_PER_DRAW", 200),
		SealDelayMillis:   getEnvInt("SEAL_DELAY_MILLIS", 1500),

		// Simulation Settings
		CanvasWidth:     getEnvFloat("CANVAS_WIDTH", 1280),
		CanvasHeight:    getEnvFloat("CANVAS_HEIGHT", 720),
		BallRadius:      getEnvFloat("BALL_RADIUS", 16),
		SwirlMultiplier: getEnvFloat("SWIRL_MULTIPLIER", 1.0),
		SnapshotHz:      getEnvInt("SNAPSHOT_HZ", 20),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 120),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
