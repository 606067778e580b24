package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJsonConfig_Unmarshal(t *testing.T) {
	data := []byte(`{
		"endpoint_addr_http": ":8081",
		"database_dsn": "postgres://u:p@localhost:5432/lifesignal",
		"check_interval": "15m",
		"notify_timeout": "2s",
		"rate_limit_per_second": 5
	}`)

	c := &JsonConfig{}
	require.NoError(t, json.Unmarshal(data, c))

	assert.Equal(t, c.EndpointAddrHTTP, ":8081")
	assert.Equal(t, c.DatabaseDSN, "postgres://u:p@localhost:5432/lifesignal")
	assert.Equal(t, c.CheckInterval.Duration, 15*time.Minute)
	assert.Equal(t, c.NotifyTimeout.Duration, 2*time.Second)
	assert.Equal(t, c.RateLimitPerSecond, 5)
}

func TestJsonConfig_DurationAsNanoseconds(t *testing.T) {
	c := &JsonConfig{}
	require.NoError(t, json.Unmarshal([]byte(`{"check_interval": 60000000000}`), c))
	assert.Equal(t, c.CheckInterval.Duration, time.Minute)
}

func TestJsonConfig_InvalidDuration(t *testing.T) {
	c := &JsonConfig{}
	assert.Error(t, json.Unmarshal([]byte(`{"check_interval": "soon"}`), c))
}
