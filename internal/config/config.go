// Package config provides YAML-based configuration loading for hitoq.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvDBPassword overrides database.password when set.
const EnvDBPassword = "HITOQ_DB_PASSWORD"

// Config is the top-level hitoq configuration, loaded from hitoq.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Messaging MessagingConfig `yaml:"messaging"`
	Digest    DigestConfig    `yaml:"digest"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: release, debug, test
}

// DatabaseConfig selects and addresses the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or mysql
	Path     string `yaml:"path"`   // sqlite file, ":memory:" allowed
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// AuthConfig selects how callers are resolved to user ids.
type AuthConfig struct {
	Mode         string `yaml:"mode"` // header or github
	Header       string `yaml:"header"`
	GitHubAPIURL string `yaml:"github_api_url"`
}

// MessagingConfig tunes the messaging core.
type MessagingConfig struct {
	MaxContentLength int      `yaml:"max_content_length"`
	ImportantTypes   []string `yaml:"important_types"`
	DefaultPageSize  int      `yaml:"default_page_size"`
	MaxPageSize      int      `yaml:"max_page_size"`
}

// DigestConfig configures the scheduled activity digest.
type DigestConfig struct {
	Schedule string        `yaml:"schedule"` // 5-field cron expression
	Slack    ChannelConfig `yaml:"slack"`
	Discord  ChannelConfig `yaml:"discord"`
}

// ChannelConfig addresses a chat channel with a bot token.
type ChannelConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are set.
func (c ChannelConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "hitoq.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "hitoq"
		}
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Auth.Mode == "" {
		c.Auth.Mode = "header"
	}
	if c.Auth.Header == "" {
		c.Auth.Header = "X-User-Id"
	}

	if c.Messaging.MaxContentLength == 0 {
		c.Messaging.MaxContentLength = 500
	}
	if len(c.Messaging.ImportantTypes) == 0 {
		c.Messaging.ImportantTypes = []string{"comment"}
	}
	if c.Messaging.DefaultPageSize == 0 {
		c.Messaging.DefaultPageSize = 50
	}
	if c.Messaging.MaxPageSize == 0 {
		c.Messaging.MaxPageSize = 100
	}

	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * *"
	}
}

// applyEnv applies environment overrides for secrets.
func (c *Config) applyEnv() {
	if pw := os.Getenv(EnvDBPassword); pw != "" {
		c.Database.Password = pw
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	switch c.Server.Mode {
	case "release", "debug", "test":
	default:
		errs = append(errs, fmt.Sprintf("server.mode %q must be release, debug or test", c.Server.Mode))
	}

	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}

	switch c.Auth.Mode {
	case "header", "github":
	default:
		errs = append(errs, fmt.Sprintf("auth.mode %q must be header or github", c.Auth.Mode))
	}

	if c.Messaging.MaxContentLength < 1 || c.Messaging.MaxContentLength > 500 {
		errs = append(errs, "messaging.max_content_length must be between 1 and 500")
	}
	for i, typ := range c.Messaging.ImportantTypes {
		if typ != "comment" && typ != "like" {
			errs = append(errs, fmt.Sprintf("messaging.important_types[%d] %q is not a message type", i, typ))
		}
	}
	if c.Messaging.DefaultPageSize > c.Messaging.MaxPageSize {
		errs = append(errs, "messaging.default_page_size exceeds max_page_size")
	}

	if c.Digest.Slack.BotToken != "" && c.Digest.Slack.ChannelID == "" {
		errs = append(errs, "digest.slack.channel_id is required with a bot token")
	}
	if c.Digest.Discord.BotToken != "" && c.Digest.Discord.ChannelID == "" {
		errs = append(errs, "digest.discord.channel_id is required with a bot token")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
