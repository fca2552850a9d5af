package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string          `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration   `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string          `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string          `mapstructure:"log_format" yaml:"log_format"`
	TokenDigest       string          `mapstructure:"token_digest" yaml:"token_digest"`
	FeedBuffer        int             `mapstructure:"feed_buffer" yaml:"feed_buffer"`
	Limits            LimitsConfig    `mapstructure:"limits" yaml:"limits"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	CORS              CORSConfig      `mapstructure:"cors" yaml:"cors"`
}

// LimitsConfig holds the advisory message and attachment limits. They are
// checked by the HTTP layer only when Enforce is set.
type LimitsConfig struct {
	Enforce                bool     `mapstructure:"enforce" yaml:"enforce"`
	MaxMessageChars        int      `mapstructure:"max_message_chars" yaml:"max_message_chars"`
	MaxAttachmentBytes     int64    `mapstructure:"max_attachment_bytes" yaml:"max_attachment_bytes"`
	AllowedAttachmentTypes []string `mapstructure:"allowed_attachment_types" yaml:"allowed_attachment_types"`
}

// RateLimitConfig limits requests per client IP.
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Requests uint          `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

// CORSConfig lists allowed origins. Empty or "*" allows any origin.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8000",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		TokenDigest:       "sha224",
		FeedBuffer:        16,
		Limits: LimitsConfig{
			Enforce:                false,
			MaxMessageChars:        1024,
			MaxAttachmentBytes:     2 << 20,
			AllowedAttachmentTypes: []string{"image/jpeg"},
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 100,
			Window:   time.Second,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"*"},
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.TokenDigest != "" {
		c.TokenDigest = other.TokenDigest
	}
	if other.FeedBuffer != 0 {
		c.FeedBuffer = other.FeedBuffer
	}
}
