package config

import (
	"encoding/json"
	"os"

	"github.com/lifesignal/lifesignal/internal/flagx"
	"github.com/lifesignal/lifesignal/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both string values
// such as "30m" and integer nanoseconds. After unmarshalling, its fields are
// copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	SessionValidity    timex.Duration `json:"session_validity"`
	EncryptionKeyHex   string         `json:"encryption_key"`
	CheckInterval      timex.Duration `json:"check_interval"`
	NotifyEndpoint     string         `json:"notify_endpoint"`
	NotifyTimeout      timex.Duration `json:"notify_timeout"`
	RateLimitPerSecond int            `json:"rate_limit_per_second"`
	RateLimitBurst     int            `json:"rate_limit_burst"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the JSON file given via the -c
// or -config command-line flags. If no flag is set, nothing is loaded. If the
// file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.SessionValidity.Duration > 0 {
		config.SessionValidityDuration = c.SessionValidity.Duration
	}
	if c.EncryptionKeyHex != "" {
		config.EncryptionKeyHex = c.EncryptionKeyHex
	}
	if c.CheckInterval.Duration > 0 {
		config.CheckInterval = c.CheckInterval.Duration
	}
	if c.NotifyEndpoint != "" {
		config.NotifyEndpoint = c.NotifyEndpoint
	}
	if c.NotifyTimeout.Duration > 0 {
		config.NotifyTimeout = c.NotifyTimeout.Duration
	}
	if c.RateLimitPerSecond > 0 {
		config.RateLimitPerSecond = c.RateLimitPerSecond
	}
	if c.RateLimitBurst > 0 {
		config.RateLimitBurst = c.RateLimitBurst
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
}
