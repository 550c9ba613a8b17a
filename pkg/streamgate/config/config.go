// Package config holds the gateway's process-wide configuration: read once
// at startup, validated, then shared read-only across all requests.
package config

import (
	"errors"
	"time"
)

// Config is the gateway configuration. Field tags follow cleanenv
// conventions; executables populate the struct from the environment with
// cleanenv.ReadEnv and then call Validate.
type Config struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	// Signing
	SecretKey        string        `env:"SECRET_KEY"`
	Expiry           time.Duration `env:"LINK_EXPIRY" env-default:"3h"`
	RequireSignature bool          `env:"REQUIRE_SIGNATURE" env-default:"true"`

	// Origin resolution. Exactly one of OriginDomain or S3.Bucket must be
	// set: the public-domain form concatenates keys onto the domain, the
	// S3 form presigns GetObject requests against a private bucket.
	OriginDomain string `env:"ORIGIN_DOMAIN"`
	S3           S3Config

	// Admin panel. An empty password disables the panel.
	AdminPassword string `env:"ADMIN_PASSWORD"`
	LinkPrefix    string `env:"LINK_PREFIX" env-default:"v"`

	// Edge cache (optional variant)
	CacheEnabled   bool          `env:"CACHE_ENABLED" env-default:"false"`
	CacheTTL       time.Duration `env:"CACHE_TTL" env-default:"4h"`
	CacheSizeMB    int           `env:"CACHE_SIZE_MB" env-default:"256"`
	CacheMaxBodyMB int           `env:"CACHE_MAX_BODY_MB" env-default:"16"`
}

// S3Config configures the presigned S3 origin.
type S3Config struct {
	Bucket          string `env:"S3_BUCKET"`
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"S3_ENDPOINT"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignSeconds  int    `env:"S3_PRESIGN_SECONDS" env-default:"3600"`
}

// Validate checks the configuration for startup errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.RequireSignature && c.SecretKey == "" {
		return errors.New("secret key is required when signatures are enforced")
	}

	if c.Expiry <= 0 {
		return errors.New("link expiry must be positive")
	}

	if c.OriginDomain == "" && c.S3.Bucket == "" {
		return errors.New("either an origin domain or an s3 bucket is required")
	}
	if c.OriginDomain != "" && c.S3.Bucket != "" {
		return errors.New("origin domain and s3 bucket are mutually exclusive")
	}

	if c.CacheEnabled {
		if c.CacheTTL <= 0 {
			return errors.New("cache ttl must be positive")
		}
		if c.CacheSizeMB <= 0 {
			return errors.New("cache size must be positive")
		}
	}

	return nil
}
