package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the full labelbot configuration
type Config struct {
	GitHub GitHubConfig `mapstructure:"github"`
	Cloud  CloudConfig  `mapstructure:"cloud"`
	Bot    BotConfig    `mapstructure:"bot"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Server ServerConfig `mapstructure:"server"`
}

// GitHubConfig contains repository and authentication settings
type GitHubConfig struct {
	Repository     string `mapstructure:"repository"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	AppID          int64  `mapstructure:"app_id"`
	InstallationID int64  `mapstructure:"installation_id"`
}

// CloudConfig contains GCP settings
type CloudConfig struct {
	Project    string `mapstructure:"project"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
	LogID      string `mapstructure:"log_id"`
}

// BotConfig contains command handling settings
type BotConfig struct {
	Handle         string `mapstructure:"handle"`
	PolicyFile     string `mapstructure:"policy_file"`
	CallTimeout    string `mapstructure:"call_timeout"`
	RateLimitFloor int    `mapstructure:"rate_limit_floor"`
}

// QueueConfig contains Pub/Sub resource names
type QueueConfig struct {
	Topic        string `mapstructure:"topic"`
	Subscription string `mapstructure:"subscription"`
}

// ServerConfig contains webhook listener settings
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.GitHub.APIBaseURL == "" {
		cfg.GitHub.APIBaseURL = "https://api.github.com"
	}

	if cfg.Cloud.SecretName == "" {
		cfg.Cloud.SecretName = "labelbot-credentials"
	}

	if cfg.Cloud.LogID == "" {
		cfg.Cloud.LogID = "labelbot"
	}

	if cfg.Bot.Handle == "" {
		cfg.Bot.Handle = "@label-bot"
	}

	if cfg.Bot.CallTimeout == "" {
		cfg.Bot.CallTimeout = "30s"
	}

	if cfg.Queue.Topic == "" {
		cfg.Queue.Topic = "labelbot-events"
	}

	if cfg.Queue.Subscription == "" {
		cfg.Queue.Subscription = "labelbot-worker"
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
}

// CallTimeout returns the parsed per-call timeout.
func (c *Config) CallTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Bot.CallTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid call_timeout: %w", err)
	}
	return d, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitHub.Repository == "" {
		return fmt.Errorf("github repository is required")
	}

	if !strings.Contains(c.GitHub.Repository, "/") {
		return fmt.Errorf("invalid repository %q (must be owner/name)", c.GitHub.Repository)
	}

	if !strings.HasPrefix(c.Bot.Handle, "@") {
		return fmt.Errorf("invalid bot handle %q (must start with @)", c.Bot.Handle)
	}

	if c.Bot.CallTimeout != "" {
		if _, err := time.ParseDuration(c.Bot.CallTimeout); err != nil {
			return fmt.Errorf("invalid call_timeout: %w", err)
		}
	}

	if c.Bot.RateLimitFloor < 0 {
		return fmt.Errorf("rate_limit_floor must not be negative")
	}

	// App ID and installation ID travel together.
	if (c.GitHub.AppID == 0) != (c.GitHub.InstallationID == 0) {
		return fmt.Errorf("github app_id and installation_id must both be set or both be empty")
	}

	return nil
}

// ValidateForServe performs additional validation required by the webhook server
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Cloud.Project == "" {
		return fmt.Errorf("cloud project is required")
	}

	if c.Cloud.SecretName == "" {
		return fmt.Errorf("secret name is required")
	}

	if c.Queue.Topic == "" {
		return fmt.Errorf("queue topic is required")
	}

	return nil
}

// ValidateForWorker performs additional validation required by the queue worker
func (c *Config) ValidateForWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Cloud.Project == "" {
		return fmt.Errorf("cloud project is required")
	}

	if c.Cloud.SecretName == "" {
		return fmt.Errorf("secret name is required")
	}

	if c.Queue.Subscription == "" {
		return fmt.Errorf("queue subscription is required")
	}

	return nil
}
