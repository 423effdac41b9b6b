// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	DB         DBConfig         `mapstructure:"db"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Crawler    CrawlerConfig    `mapstructure:"crawler"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// CheckpointConfig locates the durable resume-point file.
type CheckpointConfig struct {
	Path string `mapstructure:"path"`
}

// CrawlerConfig governs the scrape loop.
type CrawlerConfig struct {
	UserAgent  string        `mapstructure:"user_agent"`
	Delay      time.Duration `mapstructure:"delay"`
	SiteOrigin string        `mapstructure:"site_origin"`
}

// HTTPConfig configures HTTP client timeout and retry behavior.
type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
}

// ServerConfig controls the operational HTTP endpoint served during crawls.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STANDARDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// FromViper builds a Config from an already-initialized Viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

// SetDefaults registers the default value for every knob on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)

	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 1)

	v.SetDefault("checkpoint.path", "data/scraper_state.json")

	const defaultUA = "FLStandardsBot/1.0 (+https://github.com/flbest/standards-crawler)"
	v.SetDefault("crawler.user_agent", defaultUA)
	v.SetDefault("crawler.delay", "1s")
	v.SetDefault("crawler.site_origin", "https://www.cpalms.org")

	v.SetDefault("http.timeout", "10s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.base_delay", "5s")
	v.SetDefault("http.max_delay", "60s")
	v.SetDefault("http.backoff_factor", 2.0)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Checkpoint.Path == "" {
		return fmt.Errorf("checkpoint.path must be set")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Crawler.Delay < 0 {
		return fmt.Errorf("crawler.delay must be >= 0")
	}
	if c.Crawler.SiteOrigin == "" {
		return fmt.Errorf("crawler.site_origin must be set")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.BaseDelay <= 0 {
		return fmt.Errorf("http.base_delay must be > 0")
	}
	if c.HTTP.MaxDelay < c.HTTP.BaseDelay {
		return fmt.Errorf("http.max_delay must be >= http.base_delay")
	}
	if c.HTTP.BackoffFactor < 1 {
		return fmt.Errorf("http.backoff_factor must be >= 1")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when server is enabled")
	}
	return nil
}
