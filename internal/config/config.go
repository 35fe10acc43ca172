package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the runtime configuration read from the environment
type Config struct {
	Port     string
	BasePath string
	LogLevel string
	GinMode  string

	Database DatabaseConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	RabbitMQ RabbitMQConfig

	// StaffQuota is the maximum number of staff accounts a single admin may create
	StaffQuota int

	CleanupInterval  time.Duration
	OTPReaperEnabled bool

	SentryDSN   string
	ExportsDir  string
	CORSOrigins []string
	ShopName    string
}

// DatabaseConfig holds database connection parameters
type DatabaseConfig struct {
	Driver   string // postgres, mysql or sqlite
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	DSN      string // used as-is for mysql and sqlite
}

// JWTConfig holds token signing parameters
type JWTConfig struct {
	Secret          string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// SMTPConfig holds outgoing mail parameters
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether an SMTP server has been configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// RabbitMQConfig holds broker connection parameters
type RabbitMQConfig struct {
	Host string
	Port string
	User string
	Pass string
}

// URL builds the AMQP connection URL (guest user automatically uses / vhost)
func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Pass, c.Host, c.Port)
}

// Enabled reports whether a broker has been configured
func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		BasePath: getEnv("BASE_PATH", "/stockplus-api"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		GinMode:  getEnv("GIN_MODE", "release"),
		Database: DatabaseConfig{
			Driver:   strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			Host:     getEnv("DB_HOST", ""),
			Port:     getEnv("DB_PORT", ""),
			User:     getEnv("DB_USER", ""),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", ""),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			DSN:      getEnv("DB_DSN", ""),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "default-secret-key-change-in-production"),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@stockplus.local"),
		},
		RabbitMQ: RabbitMQConfig{
			Host: getEnv("RABBITMQ_HOST", ""),
			Port: getEnv("RABBITMQ_PORT", "5672"),
			User: getEnv("RABBITMQ_USER", "guest"),
			Pass: getEnv("RABBITMQ_PASS", "guest"),
		},
		StaffQuota:       getEnvAsInt("STAFF_QUOTA", 5),
		CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 24*time.Hour),
		OTPReaperEnabled: getEnvAsBool("OTP_REAPER_ENABLED", false),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		ExportsDir:       getEnv("EXPORTS_DIR", "./exports"),
		CORSOrigins:      strings.Split(getEnv("CORS_ORIGINS", "*"), ","),
		ShopName:         getEnv("SHOP_NAME", "SVENSKA STORE"),
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, fmt.Sprintf("%d", defaultValue))
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
