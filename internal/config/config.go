package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AWS      AWSConfig      `yaml:"aws"`
	JWT      JWTConfig      `yaml:"jwt"`
	APNs     APNsConfig     `yaml:"apns"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"`
}

// RedisConfig holds Redis configuration shared by the cache and the task queue
type RedisConfig struct {
	URL string `yaml:"url"`
}

// AWSConfig holds S3-compatible object storage configuration
type AWSConfig struct {
	Region        string `yaml:"region"`
	S3Bucket      string `yaml:"s3_bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
	UsePathStyle  bool   `yaml:"use_path_style"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string `yaml:"secret"`
	ExpiryDays int    `yaml:"expiry_days"`
}

// APNsConfig holds Apple push configuration. Push is optional.
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	KeyFile    string `yaml:"key_file"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// TrackerConfig holds the location pipeline cadence and limits
type TrackerConfig struct {
	ActiveLimit         int           `yaml:"active_limit"`
	ActivePollInterval  time.Duration `yaml:"active_poll_interval"`
	HistoryPollInterval time.Duration `yaml:"history_poll_interval"`
	FeedPollInterval    time.Duration `yaml:"feed_poll_interval"`
	WriteInterval       time.Duration `yaml:"write_interval"`
	MaxUploadBytes      int64         `yaml:"max_upload_bytes"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, then applies defaults and
// environment overrides. A .env file next to the binary is loaded if present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.AWS.S3Bucket == "" {
		c.AWS.S3Bucket = "uploads"
	}
	if c.AWS.Region == "" {
		c.AWS.Region = "us-east-1"
	}
	if c.JWT.ExpiryDays == 0 {
		c.JWT.ExpiryDays = 30
	}
	if c.Tracker.ActiveLimit == 0 {
		c.Tracker.ActiveLimit = 10
	}
	if c.Tracker.ActivePollInterval == 0 {
		c.Tracker.ActivePollInterval = 3 * time.Second
	}
	if c.Tracker.HistoryPollInterval == 0 {
		c.Tracker.HistoryPollInterval = 30 * time.Second
	}
	if c.Tracker.FeedPollInterval == 0 {
		c.Tracker.FeedPollInterval = 5 * time.Second
	}
	if c.Tracker.WriteInterval == 0 {
		c.Tracker.WriteInterval = 30 * time.Second
	}
	if c.Tracker.MaxUploadBytes == 0 {
		c.Tracker.MaxUploadBytes = 10 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&c.Database.Password, "DATABASE_PASSWORD")
	override(&c.Redis.URL, "REDIS_URL")
	override(&c.JWT.Secret, "JWT_SECRET")
	override(&c.AWS.AccessKey, "AWS_ACCESS_KEY")
	override(&c.AWS.SecretKey, "AWS_SECRET_KEY")
	override(&c.Log.Level, "LOG_LEVEL")
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.AWS.S3Bucket == "" {
		return errors.New("aws.s3_bucket is required")
	}
	if c.Tracker.ActiveLimit <= 0 {
		return errors.New("tracker.active_limit must be positive")
	}
	if c.Tracker.ActivePollInterval <= 0 || c.Tracker.HistoryPollInterval <= 0 || c.Tracker.WriteInterval <= 0 {
		return errors.New("tracker intervals must be positive")
	}
	if c.APNs.Enabled && (c.APNs.KeyFile == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		return errors.New("apns requires key_file, key_id, team_id and topic when enabled")
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
