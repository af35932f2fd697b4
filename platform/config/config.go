// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides Redis and asynq settings for background work.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SyncConfig provides settings for reconciliation against the partner system.
type SyncConfig interface {
	GetSyncSourceMode() string
	GetSyncAPIBaseURL() string
	GetSyncAPIKey() string
	GetSyncSourceDatabaseURL() string
	GetSyncFetchTimeout() time.Duration
	GetSyncPollInterval() time.Duration
	GetSyncLockTTL() time.Duration
	GetWebhookAPIKey() string
	IsWebhookEnabled() bool
}

// PipelineConfig provides the deadline windows of the pipeline clocks.
type PipelineConfig interface {
	GetFirstCallSLA() time.Duration
	GetConfirmationWindow() time.Duration
	GetReportWindow() time.Duration
	GetSLAScanInterval() time.Duration
}

// EmailConfig provides SMTP settings for escalation emails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// StorageConfig provides MinIO settings for meeting report media.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOBucketReportMedia() string
	GetMinIOUploadURLTTL() time.Duration
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	AccessTokenTTL  time.Duration
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	AppBaseURL      string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SyncSourceMode        string
	SyncAPIBaseURL        string
	SyncAPIKey            string
	SyncSourceDatabaseURL string
	SyncFetchTimeout      time.Duration
	SyncPollInterval      time.Duration
	SyncLockTTL           time.Duration
	WebhookAPIKey         string

	FirstCallSLA       time.Duration
	ConfirmationWindow time.Duration
	ReportWindow       time.Duration
	SLAScanInterval    time.Duration

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	MinIOEndpoint          string
	MinIOAccessKey         string
	MinIOSecretKey         string
	MinIOUseSSL            bool
	MinIOBucketReportMedia string
	MinIOUploadURLTTL      time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }

// SyncConfig implementation
func (c *Config) GetSyncSourceMode() string            { return c.SyncSourceMode }
func (c *Config) GetSyncAPIBaseURL() string            { return c.SyncAPIBaseURL }
func (c *Config) GetSyncAPIKey() string                { return c.SyncAPIKey }
func (c *Config) GetSyncSourceDatabaseURL() string     { return c.SyncSourceDatabaseURL }
func (c *Config) GetSyncFetchTimeout() time.Duration   { return c.SyncFetchTimeout }
func (c *Config) GetSyncPollInterval() time.Duration   { return c.SyncPollInterval }
func (c *Config) GetSyncLockTTL() time.Duration        { return c.SyncLockTTL }
func (c *Config) GetWebhookAPIKey() string             { return c.WebhookAPIKey }
func (c *Config) IsWebhookEnabled() bool               { return c.WebhookAPIKey != "" }

// PipelineConfig implementation
func (c *Config) GetFirstCallSLA() time.Duration       { return c.FirstCallSLA }
func (c *Config) GetConfirmationWindow() time.Duration { return c.ConfirmationWindow }
func (c *Config) GetReportWindow() time.Duration       { return c.ReportWindow }
func (c *Config) GetSLAScanInterval() time.Duration    { return c.SLAScanInterval }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string            { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string           { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string           { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool                { return c.MinIOUseSSL }
func (c *Config) GetMinIOBucketReportMedia() string   { return c.MinIOBucketReportMedia }
func (c *Config) GetMinIOUploadURLTTL() time.Duration { return c.MinIOUploadURLTTL }
func (c *Config) IsMinIOEnabled() bool                { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:  mustDuration(getEnv("JWT_ACCESS_TTL", "12h")),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),

		SyncSourceMode:        strings.ToLower(getEnv("SYNC_SOURCE_MODE", "api")),
		SyncAPIBaseURL:        getEnv("SYNC_API_BASE_URL", ""),
		SyncAPIKey:            getEnv("SYNC_API_KEY", ""),
		SyncSourceDatabaseURL: getEnv("SYNC_SOURCE_DATABASE_URL", ""),
		SyncFetchTimeout:      mustDuration(getEnv("SYNC_FETCH_TIMEOUT", "10s")),
		SyncPollInterval:      mustDuration(getEnv("SYNC_POLL_INTERVAL", "60s")),
		SyncLockTTL:           mustDuration(getEnv("SYNC_LOCK_TTL", "5m")),
		WebhookAPIKey:         getEnv("WEBHOOK_API_KEY", ""),

		FirstCallSLA:       mustDuration(getEnv("FIRST_CALL_SLA", "30m")),
		ConfirmationWindow: mustDuration(getEnv("CONFIRMATION_WINDOW", "2h")),
		ReportWindow:       mustDuration(getEnv("REPORT_WINDOW", "24h")),
		SLAScanInterval:    mustDuration(getEnv("SLA_SCAN_INTERVAL", "5m")),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Pipeline CRM"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		MinIOEndpoint:          getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:         getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:         getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:            strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOBucketReportMedia: getEnv("MINIO_BUCKET_REPORT_MEDIA", "meeting-report-media"),
		MinIOUploadURLTTL:      mustDuration(getEnv("MINIO_UPLOAD_URL_TTL", "15m")),
	}
	cfg.EmailEnabled = strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true") && cfg.SMTPHost != ""

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	switch c.SyncSourceMode {
	case "api", "db", "off":
	default:
		return fmt.Errorf("SYNC_SOURCE_MODE must be one of api, db, off")
	}
	if c.SyncSourceMode == "db" && c.SyncSourceDatabaseURL == "" {
		return fmt.Errorf("SYNC_SOURCE_DATABASE_URL is required when SYNC_SOURCE_MODE is db")
	}
	if c.SyncFetchTimeout <= 0 || c.SyncPollInterval <= 0 {
		return fmt.Errorf("SYNC_FETCH_TIMEOUT and SYNC_POLL_INTERVAL must be positive durations")
	}
	if c.FirstCallSLA <= 0 || c.ConfirmationWindow <= 0 || c.ReportWindow <= 0 {
		return fmt.Errorf("pipeline windows must be positive durations")
	}
	if c.EmailEnabled && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
