package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	API       APIConfig
	Server    ServerConfig
	Output    OutputConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	R2        R2Config
}

type APIConfig struct {
	URL            string `validate:"required,url"`
	PollIntervalMS int    `validate:"min=1"`
	Timeout        int    `validate:"min=1"` // seconds
	MaxWait        int    `validate:"min=0"` // seconds, 0 disables the cutoff
}

// PollInterval returns the status polling cadence
func (c APIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout
func (c APIConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// MaxWaitDuration returns the poll cycle cutoff, zero when unbounded
func (c APIConfig) MaxWaitDuration() time.Duration {
	return time.Duration(c.MaxWait) * time.Second
}

type ServerConfig struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"omitempty,oneof=trace debug info warn error"`
}

type OutputConfig struct {
	Dir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	UploadPerHour int `validate:"min=1"`
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Endpoint        string `validate:"omitempty,url"`
	SignedURLExpiry int    `validate:"min=1"` // minutes
}

// Enabled reports whether enough R2 settings are present to build a client
func (c R2Config) Enabled() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// Load reads configuration from config.yaml (optional) and the environment
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables
	v.AutomaticEnv()

	_ = v.BindEnv("api.url", "API_URL")
	_ = v.BindEnv("api.poll_interval_ms", "POLL_INTERVAL_MS")
	_ = v.BindEnv("api.timeout", "API_TIMEOUT")
	_ = v.BindEnv("api.max_wait", "API_MAX_WAIT")
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("output.dir", "OUTPUT_DIR")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.upload_per_hour", "RATELIMIT_UPLOAD_PER_HOUR")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.endpoint", "R2_ENDPOINT")
	_ = v.BindEnv("r2.signed_url_expiry", "R2_SIGNED_URL_EXPIRY")

	// Defaults
	v.SetDefault("api.poll_interval_ms", 3000)
	v.SetDefault("api.timeout", 30)
	v.SetDefault("api.max_wait", 0)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("output.dir", ".")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.upload_per_hour", 50)
	v.SetDefault("r2.signed_url_expiry", 60)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		API: APIConfig{
			URL:            strings.TrimRight(v.GetString("api.url"), "/"),
			PollIntervalMS: v.GetInt("api.poll_interval_ms"),
			Timeout:        v.GetInt("api.timeout"),
			MaxWait:        v.GetInt("api.max_wait"),
		},
		Server: ServerConfig{
			Port:     v.GetString("server.port"),
			LogLevel: strings.ToLower(v.GetString("server.log_level")),
		},
		Output: OutputConfig{
			Dir: v.GetString("output.dir"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: v.GetInt("ratelimit.upload_per_hour"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			Endpoint:        v.GetString("r2.endpoint"),
			SignedURLExpiry: v.GetInt("r2.signed_url_expiry"),
		},
	}

	return cfg, nil
}

// Validate checks the configuration after flag overrides are applied
func (c *Config) Validate() error {
	c.API.URL = strings.TrimRight(c.API.URL, "/")
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
