package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/chyiyaqing/pushnotify/internal/notify"
	"github.com/chyiyaqing/pushnotify/internal/notify/pushplus"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "pushnotify.yaml"

type Config struct {
	PushPlus PushPlusConfig `yaml:"pushplus"`
	Notify   NotifyConfig   `yaml:"notify"`
	Log      LogConfig      `yaml:"log"`
}

type PushPlusConfig struct {
	Token    string        `yaml:"token"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Template string `yaml:"template"`
	// Schedule is the cron expression of the external trigger. It only feeds
	// the "next run" line of the report.
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		PushPlus: PushPlusConfig{
			Endpoint: pushplus.DefaultEndpoint,
			Timeout:  pushplus.DefaultTimeout,
		},
		Notify: NotifyConfig{
			Template: string(notify.TemplateMarkdown),
			Timezone: "Asia/Shanghai",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load reads the YAML file at path (a missing file is fine), then the .env
// file in the working directory, then applies environment overrides.
// Env vars take precedence over .env, which takes precedence over YAML.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides config fields with environment variables when set.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("PUSHPLUS_TOKEN"); v != "" {
		cfg.PushPlus.Token = v
	}
	if v := os.Getenv("PUSHPLUS_ENDPOINT"); v != "" {
		cfg.PushPlus.Endpoint = v
	}
	if v := os.Getenv("PUSHPLUS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PUSHPLUS_TIMEOUT: %w", err)
		}
		cfg.PushPlus.Timeout = d
	}
	if v := os.Getenv("NOTIFY_TITLE"); v != "" {
		cfg.Notify.Title = v
	}
	if v := os.Getenv("NOTIFY_CONTENT"); v != "" {
		cfg.Notify.Content = v
	}
	if v := os.Getenv("NOTIFY_TEMPLATE"); v != "" {
		cfg.Notify.Template = v
	}
	if v := os.Getenv("NOTIFY_SCHEDULE"); v != "" {
		cfg.Notify.Schedule = v
	}
	if v := os.Getenv("NOTIFY_TIMEZONE"); v != "" {
		cfg.Notify.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// Validate checks the fields that do not depend on the command being run.
// The token is checked by the sender so preview works without one.
func (c *Config) Validate() error {
	if _, err := notify.ParseTemplate(c.Notify.Template); err != nil {
		return err
	}
	if c.PushPlus.Timeout < 0 {
		return fmt.Errorf("pushplus timeout must not be negative: %s", c.PushPlus.Timeout)
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("log format: unsupported value %q", c.Log.Format)
	}
	return nil
}

// Location resolves the display timezone, falling back to a fixed UTC+8 zone
// when the zone database has no entry.
func (c *Config) Location() *time.Location {
	name := strings.TrimSpace(c.Notify.Timezone)
	if name == "" {
		return beijing
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return beijing
	}
	return loc
}

var beijing = time.FixedZone("CST", 8*3600)
