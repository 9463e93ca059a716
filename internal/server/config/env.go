package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays config with environment variables. Variables from
// envFile are loaded first without overriding ones already set; a missing
// file is not an error, a malformed one panics.
//
// Recognised variables:
//
//	PORT, LISTEN_ADDR, DATABASE_DSN, JWT_SECRET, TOKEN_VALIDITY, UPLOAD_DIR,
//	BASE_URL, MEDIA_BACKEND, S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET,
//	S3_REGION, S3_BASE_ENDPOINT, REDIS_ADDR, REDIS_PASSWORD, AUTH_RATE_LIMIT,
//	AUTH_RATE_WINDOW, MAX_UPLOAD_BYTES, LOG_LEVEL, APP_ENV
func parseEnv(config *Config, envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		config.ListenAddr = ":" + v
	}
	envString(&config.ListenAddr, "LISTEN_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "JWT_SECRET")
	envDuration(&config.TokenValidityDuration, "TOKEN_VALIDITY")
	envString(&config.UploadDir, "UPLOAD_DIR")
	envString(&config.StaticBaseURL, "BASE_URL")
	envString(&config.MediaBackend, "MEDIA_BACKEND")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	if v, ok := os.LookupEnv("AUTH_RATE_LIMIT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.AuthRateLimit = n
	}
	envDuration(&config.AuthRateWindow, "AUTH_RATE_WINDOW")
	if v, ok := os.LookupEnv("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxUploadBytes = n
	}
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.AppEnv, "APP_ENV")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
