// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mwhitten/stagehand/internal/venue"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scraping  ScrapingConfig     `mapstructure:"scraping"`
	Scheduler SchedulerConfig    `mapstructure:"scheduler"`
	Server    ServerConfig       `mapstructure:"server"`
	Logging   LoggingConfig      `mapstructure:"logging"`
	Venues    []venue.Descriptor `mapstructure:"venues"`
}

// ScrapingConfig governs fetch and orchestration behavior.
type ScrapingConfig struct {
	MaxConcurrentScrapes int    `mapstructure:"max_concurrent_scrapes"`
	RequestDelayMs       int    `mapstructure:"request_delay_ms"`
	TimeoutSeconds       int    `mapstructure:"timeout_seconds"`
	RetryAttempts        int    `mapstructure:"retry_attempts"`
	OutputDirectory      string `mapstructure:"output_directory"`
	CalendarFileName     string `mapstructure:"calendar_file_name"`
	CalendarTitle        string `mapstructure:"calendar_title"`
	UserAgent            string `mapstructure:"user_agent"`
}

// SchedulerConfig controls loop timing.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	ErrorBackoff time.Duration `mapstructure:"error_backoff"`
}

// ServerConfig controls the admin HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Delay returns the politeness delay between requests.
func (c ScrapingConfig) Delay() time.Duration {
	return time.Duration(c.RequestDelayMs) * time.Millisecond
}

// Timeout returns the per-request fetch timeout.
func (c ScrapingConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// VenuePointers returns the venue list as pointers so the orchestrator
// can stamp LastScraped in place.
func (c *Config) VenuePointers() []*venue.Descriptor {
	venues := make([]*venue.Descriptor, len(c.Venues))
	for i := range c.Venues {
		venues[i] = &c.Venues[i]
	}
	return venues
}

// Load reads configuration from the given file, or from the default
// search paths when path is empty, with STAGEHAND_* environment
// variables overriding file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("scraping.max_concurrent_scrapes", 5)
	v.SetDefault("scraping.request_delay_ms", 1000)
	v.SetDefault("scraping.timeout_seconds", 30)
	v.SetDefault("scraping.retry_attempts", 3)
	v.SetDefault("scraping.output_directory", "./output")
	v.SetDefault("scraping.calendar_file_name", "theater-events.ics")
	v.SetDefault("scraping.calendar_title", "Kansas City Theater Events")
	v.SetDefault("scraping.user_agent", "")
	v.SetDefault("scheduler.interval", "6h")
	v.SetDefault("scheduler.error_backoff", "30m")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stagehand/")
		v.AddConfigPath("$HOME/.stagehand")
	}

	v.SetEnvPrefix("STAGEHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No config file present: defaults plus environment suffice.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Scraping.MaxConcurrentScrapes <= 0 {
		return fmt.Errorf("scraping.max_concurrent_scrapes must be positive, got %d", c.Scraping.MaxConcurrentScrapes)
	}
	if c.Scraping.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraping.timeout_seconds must be positive, got %d", c.Scraping.TimeoutSeconds)
	}
	if c.Scraping.RetryAttempts <= 0 {
		return fmt.Errorf("scraping.retry_attempts must be positive, got %d", c.Scraping.RetryAttempts)
	}
	if c.Scraping.OutputDirectory == "" {
		return errors.New("scraping.output_directory must not be empty")
	}
	if c.Scraping.CalendarFileName == "" {
		return errors.New("scraping.calendar_file_name must not be empty")
	}
	for i, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venues[%d]: name must not be empty", i)
		}
		if v.URL == "" {
			return fmt.Errorf("venues[%d] (%s): url must not be empty", i, v.Name)
		}
	}
	return nil
}
