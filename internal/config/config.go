package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// app config loaded from environment variables
type Config struct {
	Port     string
	Provider string

	PostgresHost     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresPort     string
	PostgresSSLMode  string

	RedisAddr     string
	RedisPassword string

	STTServiceURL string
	TTSServiceURL string

	AITimeout      time.Duration
	VoiceTimeout   time.Duration
	SessionMaxIdle time.Duration
	SweepSchedule  string

	AllowedOrigins []string
}

// loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		Provider: getEnvOrDefault("AI_PROVIDER", "gemini"),

		PostgresHost:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresUser:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		PostgresPassword: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getEnvOrDefault("POSTGRES_DB", "postgres"),
		PostgresPort:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		STTServiceURL: getEnvOrDefault("STT_SERVICE_URL", "http://localhost:5001"),
		TTSServiceURL: getEnvOrDefault("TTS_SERVICE_URL", "http://localhost:5002"),

		AITimeout:      getEnvDuration("AI_TIMEOUT", 20*time.Second),
		VoiceTimeout:   getEnvDuration("VOICE_TIMEOUT", 60*time.Second),
		SessionMaxIdle: getEnvDuration("SESSION_MAX_IDLE", 2*time.Hour),
		SweepSchedule:  getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "*/15 * * * *"),

		AllowedOrigins: []string{getEnvOrDefault("CORS_ORIGIN", "http://localhost:5173")},
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// PostgresDSN assembles the gorm connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresPort, c.PostgresSSLMode)
}

func validateConfig(config *Config) error {
	if config.Provider != "gemini" {
		return errors.New("unsupported AI provider: " + config.Provider + ". Currently supported: gemini")
	}
	if config.AITimeout < 10*time.Second || config.AITimeout > 30*time.Second {
		return errors.New("AI_TIMEOUT must be between 10s and 30s")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
