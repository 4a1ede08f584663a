package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken      string `yaml:"bot_token"`
		ChatID        string `yaml:"chat_id"`
		CommandPrefix string `yaml:"command_prefix"`
	} `yaml:"telegram"`
	Oil struct {
		EndpointURL    string  `yaml:"endpoint_url"`
		PollInterval   int     `yaml:"poll_interval"`   // seconds
		RequestTimeout int     `yaml:"request_timeout"` // seconds
		MaxRetries     int     `yaml:"max_retries"`     // transient fetch retries per cycle
		MinChange      float64 `yaml:"min_change"`      // dollars; smaller moves are not announced
		TitlePrefix    string  `yaml:"title_prefix"`
	} `yaml:"oil"`
	Storage struct {
		StateFile  string `yaml:"state_file"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"storage"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("BOT_PREFIX"); v != "" {
		cfg.Telegram.CommandPrefix = v
	}
	if v := os.Getenv("OIL_PRICE_URL"); v != "" {
		cfg.Oil.EndpointURL = v
	}
	if v := os.Getenv("POLLING_INTERVAL"); v != "" {
		// Tolerate inline comments like "300  # five minutes".
		clean := strings.TrimSpace(strings.SplitN(v, "#", 2)[0])
		if n, err := strconv.Atoi(clean); err == nil && n > 0 {
			cfg.Oil.PollInterval = n
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid POLLING_INTERVAL %q, keeping default\n", v)
		}
	}
	if v := os.Getenv("MIN_CHANGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Oil.MinChange = f
		}
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Storage.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Telegram.CommandPrefix == "" {
		cfg.Telegram.CommandPrefix = "/"
	}
	if cfg.Oil.EndpointURL == "" {
		cfg.Oil.EndpointURL = "https://play.myfly.club/oil-prices"
	}
	if cfg.Oil.PollInterval == 0 {
		cfg.Oil.PollInterval = 300
	}
	if cfg.Oil.RequestTimeout == 0 {
		cfg.Oil.RequestTimeout = 30
	}
	if cfg.Oil.MaxRetries == 0 {
		cfg.Oil.MaxRetries = 3
	}
	if cfg.Oil.MinChange == 0 {
		cfg.Oil.MinChange = 0.01
	}
	if cfg.Oil.TitlePrefix == "" {
		cfg.Oil.TitlePrefix = "Oil"
	}
	if cfg.Storage.StateFile == "" {
		cfg.Storage.StateFile = "data/poll_state.json"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/oil_sentinel.db"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Oil.EndpointURL == "" {
		return fmt.Errorf("oil.endpoint_url is required")
	}
	if c.Oil.PollInterval < 10 {
		return fmt.Errorf("oil.poll_interval must be at least 10 seconds")
	}
	return nil
}

// PollIntervalDuration returns the poll interval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.Oil.PollInterval) * time.Second
}

// RequestTimeoutDuration returns the per-request timeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Oil.RequestTimeout) * time.Second
}
