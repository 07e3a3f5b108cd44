// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"` // per email-group request
}

type FeedConfig struct {
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	LookbackDays int    `yaml:"lookback_days"` // window when no watermark exists
}

type BatchConfig struct {
	EmailBatchSize int           `yaml:"email_batch_size"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollBudget     time.Duration `yaml:"poll_budget"`
	TokenCeiling   int           `yaml:"token_ceiling"` // per-request prompt token estimate cap
}

type EmailConfig struct {
	SourceAddress string   `yaml:"source_address"`
	ToAddress     string   `yaml:"to_address"`
	Subject       string   `yaml:"subject"`
	Categories    []string `yaml:"categories"` // priority order; defaults applied when empty
}

type PodcastConfig struct {
	Bucket        string `yaml:"bucket"`
	CDNDomain     string `yaml:"cdn_domain"`
	MaxChunkChars int    `yaml:"max_chunk_chars"`
	SpeakerA      string `yaml:"speaker_a"`
	SpeakerB      string `yaml:"speaker_b"`
	VoiceA        string `yaml:"voice_a"`
	VoiceB        string `yaml:"voice_b"`
	MaxTokens     int    `yaml:"max_tokens"` // script request budget, kept low for cost
}

type AWSConfig struct {
	Region string `yaml:"region"`
}

type AlertConfig struct {
	TelegramToken string `yaml:"telegram_token"`
	ChatID        int64  `yaml:"chat_id"`
}

type AdminConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type SchedulerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	Feed      FeedConfig      `yaml:"feed"`
	Batch     BatchConfig     `yaml:"batch"`
	Email     EmailConfig     `yaml:"email"`
	Podcast   PodcastConfig   `yaml:"podcast"`
	AWS       AWSConfig       `yaml:"aws"`
	Alert     AlertConfig     `yaml:"alert"`
	Admin     AdminConfig     `yaml:"admin"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 2 * time.Hour
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-haiku-4-5"
	}
	if cfg.Anthropic.MaxTokens <= 0 {
		cfg.Anthropic.MaxTokens = 8192
	}
	if cfg.Feed.LookbackDays <= 0 {
		cfg.Feed.LookbackDays = 3
	}
	if cfg.Batch.EmailBatchSize <= 0 {
		cfg.Batch.EmailBatchSize = 25
	}
	if cfg.Batch.PollInterval <= 0 {
		cfg.Batch.PollInterval = time.Minute
	}
	if cfg.Batch.PollBudget <= 0 {
		cfg.Batch.PollBudget = time.Hour
	}
	if cfg.Batch.TokenCeiling <= 0 {
		cfg.Batch.TokenCeiling = 100000
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = "Your Daily RSS Digest"
	}
	if cfg.Podcast.MaxChunkChars <= 0 {
		cfg.Podcast.MaxChunkChars = 3000
	}
	if cfg.Podcast.SpeakerA == "" {
		cfg.Podcast.SpeakerA = "Marco"
	}
	if cfg.Podcast.SpeakerB == "" {
		cfg.Podcast.SpeakerB = "Joanna"
	}
	if cfg.Podcast.VoiceA == "" {
		cfg.Podcast.VoiceA = "Matthew"
	}
	if cfg.Podcast.VoiceB == "" {
		cfg.Podcast.VoiceB = "Joanna"
	}
	if cfg.Podcast.MaxTokens <= 0 {
		cfg.Podcast.MaxTokens = 4000
	}
	if cfg.Podcast.Bucket == "" {
		cfg.Podcast.Bucket = cfg.Feed.Bucket
	}
	if cfg.Admin.Port <= 0 {
		cfg.Admin.Port = 8080
	}
	if cfg.Scheduler.Interval <= 0 {
		cfg.Scheduler.Interval = 24 * time.Hour
	}
	if cfg.Scheduler.RunTimeout <= 0 {
		cfg.Scheduler.RunTimeout = 2 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Anthropic.APIKey == "" {
		return nil, errors.New("anthropic.api_key is required")
	}
	if cfg.Feed.Bucket == "" || cfg.Feed.Key == "" {
		return nil, errors.New("feed.bucket and feed.key are required")
	}
	if cfg.Email.SourceAddress == "" || cfg.Email.ToAddress == "" {
		return nil, errors.New("email.source_address and email.to_address are required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
