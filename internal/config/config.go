package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GitLabClientID     string
	GitLabClientSecret string
	GoogleClientID     string
	GoogleClientSecret string

	// Observability (optional)
	SentryDSN string

	// Storage (S3-compatible: MinIO, AWS S3, Cloudflare R2, Tencent COS, etc.)
	S3Region           string
	S3Bucket           string
	S3AccessKey        string
	S3SecretKey        string
	S3Endpoint         string        // Optional: for S3-compatible services
	S3KeyPrefix        string        // Namespace prefix for uploaded object keys
	S3UploadExpiry     time.Duration // Validity window for presigned upload URLs
	S3ReadExpiry       time.Duration // Validity window for presigned read URLs
	MaxUploadSizeBytes int64
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "imagedrop"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envRequired("APP_URL"), // Required: base URL for OAuth redirects
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/imagedrop.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		// OAuth
		GitHubClientID:     envString("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: envString("GITHUB_CLIENT_SECRET", ""),
		GitLabClientID:     envString("GITLAB_CLIENT_ID", ""),
		GitLabClientSecret: envString("GITLAB_CLIENT_SECRET", ""),
		GoogleClientID:     envString("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: envString("GOOGLE_CLIENT_SECRET", ""),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage (S3-compatible - required for uploads)
		S3Region:           envRequired("S3_REGION"),
		S3Bucket:           envRequired("S3_BUCKET"),
		S3AccessKey:        envRequired("S3_ACCESS_KEY"),
		S3SecretKey:        envRequired("S3_SECRET_KEY"),
		S3Endpoint:         envString("S3_ENDPOINT", ""), // Optional: for non-AWS providers
		S3KeyPrefix:        envString("S3_KEY_PREFIX", "love-img"),
		S3UploadExpiry:     envDuration("S3_UPLOAD_EXPIRY", 5*time.Minute),
		S3ReadExpiry:       envDuration("S3_READ_EXPIRY", 1*time.Hour),
		MaxUploadSizeBytes: envInt64("MAX_UPLOAD_SIZE_BYTES", 20<<20), // 20MB
	}

	// Production: require at least one OAuth provider, otherwise nobody can sign in
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

func validateProduction(cfg *Config) {
	if cfg.GitHubClientID == "" && cfg.GitLabClientID == "" && cfg.GoogleClientID == "" {
		slog.Error("production deployment requires at least one OAuth provider",
			"hint", "set GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET or the GitLab/Google equivalents")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt64(key string, def int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets and credentials are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName: c.AppName,
		AppEnv:  c.AppEnv,
		AppURL:  c.AppURL,
		Port:    c.Port,

		GitHubClientID: c.GitHubClientID,
		GitLabClientID: c.GitLabClientID,
		GoogleClientID: c.GoogleClientID,

		S3Endpoint:  c.S3Endpoint,
		S3KeyPrefix: c.S3KeyPrefix,
	}
}
