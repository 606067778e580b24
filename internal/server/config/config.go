// Package config handles configuration for the server component,
// including defaults, environment variables, JSON overlay, and
// command-line flags.
package config

import "time"

// Config holds runtime settings for the LifeSignal server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty DSN selects the in-memory store.
//   - SecretKey: HMAC secret for signing session JWTs (HS256).
//   - SessionValidityDuration: session token lifetime.
//   - EncryptionKeyHex: hex-encoded 32-byte AES key for vault content.
//   - CheckInterval: cadence of the liveness sweep.
//   - NotifyEndpoint / NotifyTimeout: outbound webhook notifier settings.
//   - RateLimitPerSecond / RateLimitBurst: per-IP request throttling.
//   - S3*: object storage settings for media vault blobs.
type Config struct {
	EndpointAddrHTTP        string
	DatabaseDSN             string
	SecretKey               string
	SessionValidityDuration time.Duration
	EncryptionKeyHex        string
	CheckInterval           time.Duration
	NotifyEndpoint          string
	NotifyTimeout           time.Duration
	RateLimitPerSecond      int
	RateLimitBurst          int
	S3RootUser              string
	S3RootPassword          string
	S3Bucket                string
	S3Region                string
	S3BaseEndpoint          string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.SessionValidityDuration = 24 * time.Hour
	c.EncryptionKeyHex = "0000000000000000000000000000000000000000000000000000000000000000"
	c.CheckInterval = 30 * time.Minute
	c.NotifyEndpoint = ""
	c.NotifyTimeout = 5 * time.Second
	c.RateLimitPerSecond = 20
	c.RateLimitBurst = 40
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "vault"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from the environment, an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
