package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Notion   NotionConfig   `yaml:"notion"`
	Text     TextConfig     `yaml:"text"`
	Image    ImageConfig    `yaml:"image"`
	Storage  StorageConfig  `yaml:"storage"`
	Sync     SyncConfig     `yaml:"sync"`
	Enrich   EnrichConfig   `yaml:"enrich"`
	Collect  CollectConfig  `yaml:"collect"`
	LogLevel string         `yaml:"log_level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

type RateLimitConfig struct {
	PerSecond int `yaml:"per_second"`
	PerMinute int `yaml:"per_minute"`
}

type NotionConfig struct {
	BaseURL    string          `yaml:"base_url"`
	Token      string          `yaml:"token"`
	Version    string          `yaml:"version"`
	RootPageID string          `yaml:"root_page_id"`
	PageSize   int             `yaml:"page_size"`
	Timeout    time.Duration   `yaml:"timeout"`
	Retry      RetryConfig     `yaml:"retry"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type TextConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"`
	Model     string          `yaml:"model"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ImageConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIKey    string          `yaml:"api_key"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type StorageConfig struct {
	Endpoint            string        `yaml:"endpoint"`
	Bucket              string        `yaml:"bucket"`
	AccessToken         string        `yaml:"access_token"`
	PublicBaseURL       string        `yaml:"public_base_url"`
	AllowedContentTypes []string      `yaml:"allowed_content_types"`
	MaxBytes            int64         `yaml:"max_bytes"`
	Timeout             time.Duration `yaml:"timeout"`
}

type SyncConfig struct {
	Schedule   string        `yaml:"schedule"`
	BatchSize  int           `yaml:"batch_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type EnrichConfig struct {
	Schedule   string        `yaml:"schedule"`
	MaxPosts   int           `yaml:"max_posts"`
	BatchSize  int           `yaml:"batch_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type CollectConfig struct {
	Schedule   string        `yaml:"schedule"`
	MaxTasks   int           `yaml:"max_tasks"`
	BatchSize  int           `yaml:"batch_size"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "notion_syncer"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "posts"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "cms_posts"
	}
	if c.Notion.BaseURL == "" {
		c.Notion.BaseURL = "https://api.notion.com/v1"
	}
	if c.Notion.Version == "" {
		c.Notion.Version = "2022-06-28"
	}
	if c.Notion.PageSize == 0 {
		c.Notion.PageSize = 100
	}
	if c.Notion.Timeout == 0 {
		c.Notion.Timeout = 30 * time.Second
	}
	if c.Notion.Retry.MaxAttempts == 0 {
		c.Notion.Retry.MaxAttempts = 3
	}
	if c.Notion.Retry.InitialBackoff == 0 {
		c.Notion.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Notion.Retry.MaxBackoff == 0 {
		c.Notion.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Notion.RateLimit.PerSecond == 0 {
		c.Notion.RateLimit.PerSecond = 3
	}
	if c.Notion.RateLimit.PerMinute == 0 {
		c.Notion.RateLimit.PerMinute = 150
	}
	if c.Text.Timeout == 0 {
		c.Text.Timeout = 60 * time.Second
	}
	if c.Text.RateLimit.PerSecond == 0 {
		c.Text.RateLimit.PerSecond = 1
	}
	if c.Text.RateLimit.PerMinute == 0 {
		c.Text.RateLimit.PerMinute = 30
	}
	if c.Image.Timeout == 0 {
		c.Image.Timeout = 30 * time.Second
	}
	if c.Image.RateLimit.PerSecond == 0 {
		c.Image.RateLimit.PerSecond = 1
	}
	if c.Image.RateLimit.PerMinute == 0 {
		c.Image.RateLimit.PerMinute = 20
	}
	if len(c.Storage.AllowedContentTypes) == 0 {
		c.Storage.AllowedContentTypes = []string{"image/png", "image/jpeg", "image/webp"}
	}
	if c.Storage.MaxBytes == 0 {
		c.Storage.MaxBytes = 10 << 20
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 60 * time.Second
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = "0 * * * *"
	}
	if c.Sync.BatchSize == 0 {
		c.Sync.BatchSize = 50
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 10 * time.Minute
	}
	if c.Enrich.Schedule == "" {
		c.Enrich.Schedule = "15 * * * *"
	}
	if c.Enrich.MaxPosts == 0 {
		c.Enrich.MaxPosts = 10
	}
	if c.Enrich.BatchSize == 0 {
		c.Enrich.BatchSize = 50
	}
	if c.Enrich.RunTimeout == 0 {
		c.Enrich.RunTimeout = 10 * time.Minute
	}
	if c.Collect.Schedule == "" {
		c.Collect.Schedule = "*/10 * * * *"
	}
	if c.Collect.MaxTasks == 0 {
		c.Collect.MaxTasks = 50
	}
	if c.Collect.BatchSize == 0 {
		c.Collect.BatchSize = 50
	}
	if c.Collect.RunTimeout == 0 {
		c.Collect.RunTimeout = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
