package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/feedbackd/internal/flagx"
	"github.com/dmitrijs2005/feedbackd/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// strings such as "24h" or integer nanoseconds. Absent keys keep the
// value already in Config.
type JsonConfig struct {
	ListenAddr            *string         `json:"listen_addr"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	UploadDir             *string         `json:"upload_dir"`
	StaticBaseURL         *string         `json:"static_base_url"`
	MediaBackend          *string         `json:"media_backend"`
	S3RootUser            *string         `json:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket"`
	S3Region              *string         `json:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint"`
	RedisAddr             *string         `json:"redis_addr"`
	RedisPassword         *string         `json:"redis_password"`
	AuthRateLimit         *int            `json:"auth_rate_limit"`
	AuthRateWindow        *timex.Duration `json:"auth_rate_window"`
	MaxUploadBytes        *int64          `json:"max_upload_bytes"`
	LogLevel              *string         `json:"log_level"`
	AppEnv                *string         `json:"app_env"`
}

// parseJson loads the file named by -c/-config, if any, over config.
// Unreadable files or invalid JSON panic.
func parseJson(config *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.ListenAddr, c.ListenAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.UploadDir, c.UploadDir)
	setString(&config.StaticBaseURL, c.StaticBaseURL)
	setString(&config.MediaBackend, c.MediaBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.AuthRateLimit != nil {
		config.AuthRateLimit = *c.AuthRateLimit
	}
	if c.AuthRateWindow != nil {
		config.AuthRateWindow = c.AuthRateWindow.Duration
	}
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AppEnv, c.AppEnv)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
