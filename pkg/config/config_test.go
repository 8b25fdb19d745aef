package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8080" validate:"gte=1,lte=65535"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	UseS3    bool   `env:"TEST_CFG_USE_S3" envDefault:"false"`
	Bucket   string `env:"TEST_CFG_BUCKET" validate:"required_if=UseS3 true"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.UseS3)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_LOG_LEVEL", "debug")
	t.Setenv("TEST_CFG_USE_S3", "true")
	t.Setenv("TEST_CFG_BUCKET", "avatars")

	var cfg testConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.UseS3)
	assert.Equal(t, "avatars", cfg.Bucket)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_ValidationFails(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "70000")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
	assert.Contains(t, err.Error(), "field 'Port'")
}

func TestLoad_ConditionalRequired(t *testing.T) {
	t.Setenv("TEST_CFG_USE_S3", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket")
}
