package config

import (
	"fmt"
	"path/filepath"
	"time"

	pkgconfig "github.com/sultanmr/aws-grocery/pkg/config"
	"github.com/sultanmr/aws-grocery/pkg/database"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the account service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"5000"`

	// PostgreSQL
	PostgresHost       string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string `env:"POSTGRES_USER" envDefault:"grocery"`
	PostgresPass       string `env:"POSTGRES_PASSWORD" envDefault:"grocery_secret"`
	PostgresDB         string `env:"POSTGRES_DB" envDefault:"grocery"`
	PostgresSSL        string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns         int32  `env:"DB_MAX_CONNS" envDefault:"10" validate:"gte=1"`
	DBMinConns         int32  `env:"DB_MIN_CONNS" envDefault:"2" validate:"gte=0"`
	SlowQueryThreshold int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200" validate:"gte=0"`

	// Redis product cache
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"5m"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret string `env:"JWT_SECRET_KEY" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer string `env:"JWT_ISSUER"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Avatar storage
	UseS3Storage       bool          `env:"USE_S3_STORAGE" envDefault:"false"`
	S3Bucket           string        `env:"S3_BUCKET_NAME" validate:"required_if=UseS3Storage true"`
	S3Region           string        `env:"S3_REGION" envDefault:"eu-central-1"`
	S3Endpoint         string        `env:"S3_ENDPOINT"`
	S3UsePathStyle     bool          `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	AWSAccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`
	AWSSessionToken    string        `env:"AWS_SESSION_TOKEN"`
	IMDSProbeTimeout   time.Duration `env:"IMDS_PROBE_TIMEOUT" envDefault:"100ms"`
	AvatarUploadDir    string        `env:"AVATAR_UPLOAD_DIR" envDefault:"static/avatars"`
	DefaultAvatar      string        `env:"DEFAULT_AVATAR" envDefault:"user_default.png"`
	AvatarMaxBytes     int64         `env:"AVATAR_MAX_BYTES" envDefault:"5242880" validate:"gt=0"`
	AvatarCacheSeconds int           `env:"AVATAR_CACHE_SECONDS" envDefault:"86400" validate:"gte=0"`

	// Tracing
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0" validate:"gte=0,lte=1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load account config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return nil, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}
	if filepath.Base(cfg.DefaultAvatar) != cfg.DefaultAvatar {
		return nil, fmt.Errorf("DEFAULT_AVATAR must be a plain filename, got %q", cfg.DefaultAvatar)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET_KEY must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	pg.MaxConns = c.DBMaxConns
	pg.MinConns = c.DBMinConns
	return pg
}

// Redis returns the product cache connection configuration.
func (c *Config) Redis() database.RedisConfig {
	rc := database.DefaultRedisConfig()
	rc.Host = c.RedisHost
	rc.Port = c.RedisPort
	rc.Password = c.RedisPassword
	rc.DB = c.RedisDB
	return rc
}

// SlowQuery returns the slow query threshold.
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryThreshold) * time.Millisecond
}

// LocalDefaultAvatarPath is the filesystem path of the last-resort avatar.
func (c *Config) LocalDefaultAvatarPath() string {
	return filepath.Join(c.AvatarUploadDir, c.DefaultAvatar)
}
