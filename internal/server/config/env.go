package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envConfig is an intermediate DTO for envconfig. Only fields that were
// actually set in the environment are copied into the runtime Config, so
// defaults survive an empty environment.
type envConfig struct {
	EndpointAddrHTTP   string        `envconfig:"HTTP_ADDR"`
	DatabaseDSN        string        `envconfig:"DATABASE_DSN"`
	SecretKey          string        `envconfig:"SECRET_KEY"`
	SessionValidity    time.Duration `envconfig:"SESSION_VALIDITY"`
	EncryptionKeyHex   string        `envconfig:"ENCRYPTION_KEY"`
	CheckInterval      time.Duration `envconfig:"CHECK_INTERVAL"`
	NotifyEndpoint     string        `envconfig:"NOTIFY_ENDPOINT"`
	NotifyTimeout      time.Duration `envconfig:"NOTIFY_TIMEOUT"`
	RateLimitPerSecond int           `envconfig:"RATE_LIMIT_PER_SECOND"`
	RateLimitBurst     int           `envconfig:"RATE_LIMIT_BURST"`
	S3RootUser         string        `envconfig:"S3_ROOT_USER"`
	S3RootPassword     string        `envconfig:"S3_ROOT_PASSWORD"`
	S3Bucket           string        `envconfig:"S3_BUCKET"`
	S3Region           string        `envconfig:"S3_REGION"`
	S3BaseEndpoint     string        `envconfig:"S3_BASE_ENDPOINT"`
}

// parseEnv overlays values from LIFESIGNAL_*-prefixed environment variables.
func parseEnv(config *Config) {
	e := &envConfig{}
	if err := envconfig.Process("lifesignal", e); err != nil {
		panic(err)
	}

	if e.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = e.EndpointAddrHTTP
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.SecretKey != "" {
		config.SecretKey = e.SecretKey
	}
	if e.SessionValidity > 0 {
		config.SessionValidityDuration = e.SessionValidity
	}
	if e.EncryptionKeyHex != "" {
		config.EncryptionKeyHex = e.EncryptionKeyHex
	}
	if e.CheckInterval > 0 {
		config.CheckInterval = e.CheckInterval
	}
	if e.NotifyEndpoint != "" {
		config.NotifyEndpoint = e.NotifyEndpoint
	}
	if e.NotifyTimeout > 0 {
		config.NotifyTimeout = e.NotifyTimeout
	}
	if e.RateLimitPerSecond > 0 {
		config.RateLimitPerSecond = e.RateLimitPerSecond
	}
	if e.RateLimitBurst > 0 {
		config.RateLimitBurst = e.RateLimitBurst
	}
	if e.S3RootUser != "" {
		config.S3RootUser = e.S3RootUser
	}
	if e.S3RootPassword != "" {
		config.S3RootPassword = e.S3RootPassword
	}
	if e.S3Bucket != "" {
		config.S3Bucket = e.S3Bucket
	}
	if e.S3Region != "" {
		config.S3Region = e.S3Region
	}
	if e.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = e.S3BaseEndpoint
	}
}
