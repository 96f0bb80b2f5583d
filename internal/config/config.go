package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server configuration
type Config struct {
	Port      string          `yaml:"port"`
	LogLevel  string          `yaml:"log_level"`
	SpeedTest SpeedTestConfig `yaml:"speedtest"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Auth      AuthConfig      `yaml:"auth"`
	Reports   ReportsConfig   `yaml:"reports"`
}

// SpeedTestConfig bounds the payloads served and accepted
type SpeedTestConfig struct {
	MaxPayloadBytes     int64  `yaml:"max_payload_bytes"`
	DefaultPayloadBytes int64  `yaml:"default_payload_bytes"`
	ChunkBytes          int    `yaml:"chunk_bytes"`
	PayloadMode         string `yaml:"payload_mode"`
}

// MongoConfig enables the MongoDB report store when URI is set
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// AuthConfig configures session tokens
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// ReportsConfig configures report history
type ReportsConfig struct {
	Capacity        int           `yaml:"capacity"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Port:     "8080",
		LogLevel: "info",
		SpeedTest: SpeedTestConfig{
			MaxPayloadBytes:     100 << 20,
			DefaultPayloadBytes: 10 << 20,
			ChunkBytes:          1 << 20,
			PayloadMode:         "replicate",
		},
		Mongo: MongoConfig{
			Database: "echo",
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Reports: ReportsConfig{
			Capacity:        1000,
			Retention:       7 * 24 * time.Hour,
			CleanupInterval: 30 * time.Minute,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a .env
// file in the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SPEEDTEST_PAYLOAD_MODE"); v != "" {
		c.SpeedTest.PayloadMode = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		c.Mongo.Database = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}

	if err := envInt64("SPEEDTEST_MAX_PAYLOAD_BYTES", &c.SpeedTest.MaxPayloadBytes); err != nil {
		return err
	}
	if err := envInt64("SPEEDTEST_DEFAULT_PAYLOAD_BYTES", &c.SpeedTest.DefaultPayloadBytes); err != nil {
		return err
	}
	if v := os.Getenv("SPEEDTEST_CHUNK_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SPEEDTEST_CHUNK_BYTES %q: %w", v, err)
		}
		c.SpeedTest.ChunkBytes = n
	}
	if err := envDuration("SESSION_TOKEN_TTL", &c.Auth.TokenTTL); err != nil {
		return err
	}
	if err := envDuration("REPORT_RETENTION", &c.Reports.Retention); err != nil {
		return err
	}
	return nil
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.SpeedTest.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be positive, got %d", c.SpeedTest.MaxPayloadBytes)
	}
	if c.SpeedTest.DefaultPayloadBytes <= 0 || c.SpeedTest.DefaultPayloadBytes > c.SpeedTest.MaxPayloadBytes {
		return fmt.Errorf("default payload bytes must be in (0, %d], got %d",
			c.SpeedTest.MaxPayloadBytes, c.SpeedTest.DefaultPayloadBytes)
	}
	if c.SpeedTest.ChunkBytes <= 0 {
		return fmt.Errorf("chunk bytes must be positive, got %d", c.SpeedTest.ChunkBytes)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Reports.Retention < 0 {
		return fmt.Errorf("report retention must not be negative, got %s", c.Reports.Retention)
	}
	return nil
}

func envInt64(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = d
	return nil
}
