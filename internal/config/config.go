package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Logger  Logger  `yaml:"logger"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Listen  string  `yaml:"listen"`
	Admin   Admin   `yaml:"admin"`
	CORS    CORS    `yaml:"cors"`
	Scoring Scoring `yaml:"scoring"`
	Refresh Refresh `yaml:"refresh"`
	Archive Archive `yaml:"archive"`
}

type Logger struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Storage struct {
	// Driver is either "sqlite" or "postgres".
	Driver   string `yaml:"driver"`
	Database string `yaml:"database"`
}

type Auth struct {
	JWT JWT `yaml:"jwt"`
}

type JWT struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type Admin struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type Scoring struct {
	DayKeyPolicy string `yaml:"day_key_policy"`
}

type Refresh struct {
	// Mode is "cached" (snapshot rebuilt on write) or "eager" (recompute on read).
	Mode                 string `yaml:"mode"`
	TimeoutSeconds       int    `yaml:"timeout_seconds"`
	Concurrency          int    `yaml:"concurrency"`
	RetryIntervalSeconds int    `yaml:"retry_interval_seconds"`
}

func (r Refresh) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func (r Refresh) RetryInterval() time.Duration {
	return time.Duration(r.RetryIntervalSeconds) * time.Second
}

// Archive configures the optional S3-compatible snapshot archive.
type Archive struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and defaults, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	// A missing .env is fine; the process environment is used as-is.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.Database = v
	}
	if v := os.Getenv("DAILYBOARD_JWT_SECRET"); v != "" {
		c.Auth.JWT.Secret = v
	}
	if v := os.Getenv("DAILYBOARD_DAY_KEY_POLICY"); v != "" {
		c.Scoring.DayKeyPolicy = v
	}
	if v := os.Getenv("DAILYBOARD_REFRESH_MODE"); v != "" {
		c.Refresh.Mode = v
	}
	if v := os.Getenv("ARCHIVE_ACCESS_KEY_ID"); v != "" {
		c.Archive.AccessKeyID = v
	}
	if v := os.Getenv("ARCHIVE_SECRET_ACCESS_KEY"); v != "" {
		c.Archive.SecretAccessKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Database == "" && c.Storage.Driver == "sqlite" {
		c.Storage.Database = "data/dailyboard.db"
	}
	if c.Auth.JWT.ExpireHours == 0 {
		c.Auth.JWT.ExpireHours = 72
	}
	if c.Scoring.DayKeyPolicy == "" {
		c.Scoring.DayKeyPolicy = "local_date"
	}
	if c.Refresh.Mode == "" {
		c.Refresh.Mode = "cached"
	}
	if c.Refresh.TimeoutSeconds <= 0 {
		c.Refresh.TimeoutSeconds = 10
	}
	if c.Refresh.Concurrency <= 0 {
		c.Refresh.Concurrency = 4
	}
	if c.Refresh.RetryIntervalSeconds <= 0 {
		c.Refresh.RetryIntervalSeconds = 60
	}
	if c.Archive.Region == "" {
		c.Archive.Region = "auto"
	}
	if c.Archive.Prefix == "" {
		c.Archive.Prefix = "leaderboards"
	}
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Database == "" {
		return errors.New("storage.database is required")
	}
	switch c.Scoring.DayKeyPolicy {
	case "local_date", "utc_date", "utc12_finalized":
	default:
		return fmt.Errorf("unknown day key policy %q", c.Scoring.DayKeyPolicy)
	}
	switch c.Refresh.Mode {
	case "cached", "eager":
	default:
		return fmt.Errorf("unknown refresh mode %q", c.Refresh.Mode)
	}
	if c.Archive.Enabled && c.Archive.Bucket == "" {
		return errors.New("archive.bucket is required when archive is enabled")
	}
	return nil
}
