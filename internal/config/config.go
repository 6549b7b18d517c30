// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the history database and backup staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Backend ROI service
	APIURL     string
	APITimeout time.Duration

	// Period sync loop
	SyncInterval   time.Duration // Delay between a successful refresh and the next advance
	AdvanceRetries int           // Transient advance failures retried within one cycle
	RetryDelay     time.Duration
	AutoStart      bool // Start the sync loop on boot

	// Storage and maintenance
	HistoryEnabled      bool
	HistoryRetention    int    // days
	RetentionSchedule   string // cron expression
	BackupSchedule      string // cron expression, empty disables scheduled backups
	MaintenanceSchedule string // cron expression
	Backup              *BackupConfig
}

// BackupConfig holds off-site backup settings for an S3-compatible bucket (Cloudflare R2)
type BackupConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string // Overrides the endpoint derived from AccountID
	Region          string
	RetentionDays   int // archives older than this are rotated out, 0 keeps all
}

// Enabled reports whether enough settings are present to reach a bucket
func (b *BackupConfig) Enabled() bool {
	if b == nil {
		return false
	}
	return b.Bucket != "" && b.AccessKeyID != "" && b.SecretAccessKey != "" && b.ResolveEndpoint() != ""
}

// ResolveEndpoint returns the explicit endpoint or the R2 endpoint for the account
func (b *BackupConfig) ResolveEndpoint() string {
	if b.Endpoint != "" {
		return b.Endpoint
	}
	if b.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", b.AccountID)
	}
	return ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("ROI_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:             absDataDir,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		Port:                getEnvAsInt("GO_PORT", 8001), // Backend owns 8000
		DevMode:             getEnvAsBool("DEV_MODE", false),
		APIURL:              getEnv("ROI_API_URL", "http://localhost:8000"),
		APITimeout:          getEnvAsDuration("ROI_API_TIMEOUT", 10*time.Second),
		SyncInterval:        getEnvAsDuration("SYNC_INTERVAL", 10*time.Second),
		AdvanceRetries:      getEnvAsInt("SYNC_ADVANCE_RETRIES", 2),
		RetryDelay:          getEnvAsDuration("SYNC_RETRY_DELAY", time.Second),
		AutoStart:           getEnvAsBool("SYNC_AUTOSTART", true),
		HistoryEnabled:      getEnvAsBool("HISTORY_ENABLED", true),
		HistoryRetention:    getEnvAsInt("HISTORY_RETENTION_DAYS", 30),
		RetentionSchedule:   getEnv("RETENTION_SCHEDULE", "0 0 3 * * *"),
		BackupSchedule:      getEnv("BACKUP_SCHEDULE", "0 30 3 * * *"),
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
		Backup:              loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded values are usable
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid ROI_API_URL %q", c.APIURL)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive, got %s", c.SyncInterval)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("ROI_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.AdvanceRetries < 0 {
		return fmt.Errorf("SYNC_ADVANCE_RETRIES must not be negative, got %d", c.AdvanceRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("SYNC_RETRY_DELAY must not be negative, got %s", c.RetryDelay)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative, got %d", c.HistoryRetention)
	}
	return nil
}

// HistoryDBPath is the location of the snapshot history database
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("10s") or plain seconds ("10")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		Bucket:          getEnv("R2_BUCKET", ""),
		Endpoint:        getEnv("R2_ENDPOINT", ""),
		Region:          getEnv("R2_REGION", "auto"),
		RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 30),
	}
}
