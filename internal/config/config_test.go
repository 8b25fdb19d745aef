package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.False(t, cfg.UseS3Storage)
	assert.Equal(t, int64(5<<20), cfg.AvatarMaxBytes)
	assert.Equal(t, 100*time.Millisecond, cfg.IMDSProbeTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ProductCacheTTL)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "static/avatars/user_default.png", cfg.LocalDefaultAvatarPath())
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQuery())
}

func TestLoad_S3RequiresBucket(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":    "development",
		"USE_S3_STORAGE": "true",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3Bucket")

	t.Setenv("S3_BUCKET_NAME", "grocery-avatars")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "grocery-avatars", cfg.S3Bucket)
}

func TestLoad_Production_RejectsDefaultSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":    "production",
		"JWT_SECRET_KEY": "change-this-to-a-secure-secret",
	})

	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET_KEY must be explicitly set")
}

func TestLoad_Production_RejectsShortSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":    "production",
		"JWT_SECRET_KEY": "short",
	})

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoad_Production_AcceptsStrongSecret(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":    "production",
		"JWT_SECRET_KEY": strings.Repeat("k", 40),
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_Rejections(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LogLevel"},
		{"min above max conns", map[string]string{"DB_MIN_CONNS": "20", "DB_MAX_CONNS": "5"}, "DB_MIN_CONNS"},
		{"default avatar with path", map[string]string{"DEFAULT_AVATAR": "../x.png"}, "plain filename"},
		{"sample rate above one", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTelSampleRate"},
		{"zero avatar limit", map[string]string{"AVATAR_MAX_BYTES": "0"}, "AvatarMaxBytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "development")
			setEnvs(t, tt.envs)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Postgres(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":   "development",
		"POSTGRES_HOST": "db",
		"POSTGRES_DB":   "shop",
		"DB_MAX_CONNS":  "20",
	})

	cfg, err := Load()
	require.NoError(t, err)
	pg := cfg.Postgres()
	assert.Equal(t, "db", pg.Host)
	assert.Equal(t, "shop", pg.DBName)
	assert.Equal(t, int32(20), pg.MaxConns)
	assert.Equal(t, time.Hour, pg.MaxConnLifetime)
}
