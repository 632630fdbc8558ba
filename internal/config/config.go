package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Log
		Auth
		Cache
		Content
		Catalog
		Tasks
		Maintenance
		Metrics
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeout time.Duration
	}
	Database struct {
		Driver       string // sqlite, postgres or mysql
		Path         string // sqlite file, used when DSN is empty
		DSN          string
		MaxOpenConns int
		MaxIdleConns int
		LogQueries   bool
	}
	Log struct {
		Level      string
		File       string // empty disables the rotated JSON file
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
		Compress   bool
	}
	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Cache struct {
		Enabled       bool
		TTL           time.Duration
		SweepInterval time.Duration
	}
	Content struct {
		Backend             string // database or s3
		DefaultWordsPerPage int
		MaxWordsPerPage     int
		S3Bucket            string
		S3Region            string
		S3Endpoint          string // optional, for S3-compatible stores
		S3AccessKey         string
		S3SecretKey         string
		S3Prefix            string
	}
	Catalog struct {
		DefaultPageSize int
		MaxPageSize     int
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string // defaults to "<db>-tasks.db" next to the sqlite file
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Maintenance struct {
		Enabled              bool
		RatingsSchedule      string // Cron format: "30 3 * * *" = nightly
		AuditCleanupSchedule string
		AuditRetentionDays   int
		TokenCleanupSchedule string
	}
	Metrics struct {
		Enabled bool
		Path    string
	}
)

// NewConfig reads configuration from the environment (and an optional .env file).
func NewConfig() *Config {
	return Load(viper.New())
}

// Load reads configuration through v. Flags bound to v by the CLI take
// precedence over environment values.
func Load(v *viper.Viper) *Config {
	loadDotEnv(".env")
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: Database{
			Driver:       v.GetString("DATABASE_DRIVER"),
			Path:         v.GetString("DATABASE_PATH"),
			DSN:          v.GetString("DATABASE_DSN"),
			MaxOpenConns: v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			LogQueries:   v.GetBool("DATABASE_LOG_QUERIES"),
		},
		Log: Log{
			Level:      v.GetString("LOG_LEVEL"),
			File:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_FILE_MAX_SIZE"),
			MaxBackups: v.GetInt("LOG_FILE_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_FILE_MAX_AGE"),
			Compress:   v.GetBool("LOG_COMPRESS"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:      v.GetBool("AUTH_CSRF_ENABLED"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Cache: Cache{
			Enabled:       v.GetBool("CACHE_ENABLED"),
			TTL:           v.GetDuration("CACHE_TTL"),
			SweepInterval: v.GetDuration("CACHE_SWEEP_INTERVAL"),
		},
		Content: Content{
			Backend:             v.GetString("CONTENT_BACKEND"),
			DefaultWordsPerPage: v.GetInt("CONTENT_WORDS_PER_PAGE"),
			MaxWordsPerPage:     v.GetInt("CONTENT_MAX_WORDS_PER_PAGE"),
			S3Bucket:            v.GetString("CONTENT_S3_BUCKET"),
			S3Region:            v.GetString("CONTENT_S3_REGION"),
			S3Endpoint:          v.GetString("CONTENT_S3_ENDPOINT"),
			S3AccessKey:         v.GetString("CONTENT_S3_ACCESS_KEY"),
			S3SecretKey:         v.GetString("CONTENT_S3_SECRET_KEY"),
			S3Prefix:            v.GetString("CONTENT_S3_PREFIX"),
		},
		Catalog: Catalog{
			DefaultPageSize: v.GetInt("CATALOG_PAGE_SIZE"),
			MaxPageSize:     v.GetInt("CATALOG_MAX_PAGE_SIZE"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Maintenance: Maintenance{
			Enabled:              v.GetBool("MAINTENANCE_ENABLED"),
			RatingsSchedule:      v.GetString("MAINTENANCE_RATINGS_SCHEDULE"),
			AuditCleanupSchedule: v.GetString("MAINTENANCE_AUDIT_CLEANUP_SCHEDULE"),
			AuditRetentionDays:   v.GetInt("AUDIT_RETENTION_DAYS"),
			TokenCleanupSchedule: v.GetString("MAINTENANCE_TOKEN_CLEANUP_SCHEDULE"),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout", "5s")

	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_max_open_conns", 10)
	v.SetDefault("database_max_idle_conns", 5)
	v.SetDefault("database_log_queries", false)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("log_file_max_size", 100) // megabytes
	v.SetDefault("log_file_max_backups", 5)
	v.SetDefault("log_file_max_age", 28) // days
	v.SetDefault("log_compress", true)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "24h")      // bearer sessions follow the session lifetime
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_csrf_enabled", true)       // cookie-authenticated writes only
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("cache_sweep_interval", "5m")

	v.SetDefault("content_backend", ContentBackendDatabase)
	v.SetDefault("content_words_per_page", DefaultWordsPerPage)
	v.SetDefault("content_max_words_per_page", MaxWordsPerPage)
	v.SetDefault("content_s3_region", "us-east-1")
	v.SetDefault("content_s3_prefix", "")

	v.SetDefault("catalog_page_size", 20)
	v.SetDefault("catalog_max_page_size", MaxCatalogPageSize)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", "")
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_ratings_schedule", "30 3 * * *")       // Nightly at 03:30
	v.SetDefault("maintenance_audit_cleanup_schedule", "0 4 * * 0") // Sundays at 04:00
	v.SetDefault("maintenance_token_cleanup_schedule", "15 * * * *") // Hourly
	v.SetDefault("audit_retention_days", 90)

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")
}

// loadDotEnv populates the process environment from path. Variables that are
// already set win, and a missing file is not an error.
func loadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// A malformed file is reported once the logger exists; keep going with the env.
		dotEnvErr = err
	}
}

var dotEnvErr error

// DotEnvError returns the error from parsing the .env file, if any.
func DotEnvError() error {
	return dotEnvErr
}

// Validate checks settings that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return errors.New("unsupported DATABASE_DRIVER: " + c.Database.Driver)
	}
	if c.Database.Driver != DriverSQLite && c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required for driver " + c.Database.Driver)
	}
	switch c.Content.Backend {
	case ContentBackendDatabase:
	case ContentBackendS3:
		if c.Content.S3Bucket == "" {
			return errors.New("CONTENT_S3_BUCKET is required for the s3 content backend")
		}
	default:
		return errors.New("unsupported CONTENT_BACKEND: " + c.Content.Backend)
	}
	if c.Content.DefaultWordsPerPage <= 0 || c.Content.DefaultWordsPerPage > c.Content.MaxWordsPerPage {
		return errors.New("CONTENT_WORDS_PER_PAGE must be between 1 and CONTENT_MAX_WORDS_PER_PAGE")
	}
	if c.Catalog.MaxPageSize <= 0 || c.Catalog.MaxPageSize > MaxCatalogPageSize {
		c.Catalog.MaxPageSize = MaxCatalogPageSize
	}
	if c.Catalog.DefaultPageSize <= 0 || c.Catalog.DefaultPageSize > c.Catalog.MaxPageSize {
		c.Catalog.DefaultPageSize = 20
	}
	return nil
}
