package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.EndpointAddrHTTP, ":8080")
	assert.Equal(t, c.DatabaseDSN, "")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.SessionValidityDuration, 24*time.Hour)
	assert.Equal(t, c.CheckInterval, 30*time.Minute)
	assert.Equal(t, c.NotifyTimeout, 5*time.Second)
	assert.Equal(t, c.RateLimitPerSecond, 20)
	assert.Equal(t, c.RateLimitBurst, 40)
	assert.Equal(t, c.S3RootUser, "admin")
	assert.Equal(t, c.S3Bucket, "vault")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
	assert.Len(t, c.EncryptionKeyHex, 64)
}

func TestParseEnv_Overrides(t *testing.T) {
	t.Setenv("LIFESIGNAL_HTTP_ADDR", ":9999")
	t.Setenv("LIFESIGNAL_CHECK_INTERVAL", "10m")
	t.Setenv("LIFESIGNAL_RATE_LIMIT_BURST", "7")

	var c Config
	c.LoadDefaults()
	parseEnv(&c)

	assert.Equal(t, c.EndpointAddrHTTP, ":9999")
	assert.Equal(t, c.CheckInterval, 10*time.Minute)
	assert.Equal(t, c.RateLimitBurst, 7)
	// untouched fields keep defaults
	assert.Equal(t, c.SecretKey, "secretKey")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.EndpointAddrHTTP, ":8080")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.SessionValidityDuration, 24*time.Hour)
	assert.Equal(t, c.CheckInterval, 30*time.Minute)
}
