package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "https://www.cpalms.org", cfg.Crawler.SiteOrigin)
	require.Equal(t, time.Second, cfg.Crawler.Delay)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
	require.Equal(t, 5*time.Second, cfg.HTTP.BaseDelay)
	require.Equal(t, 60*time.Second, cfg.HTTP.MaxDelay)
	require.InEpsilon(t, 2.0, cfg.HTTP.BackoffFactor, 1e-9)
	require.False(t, cfg.Server.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte(`
crawler:
  delay: 250ms
  site_origin: https://cpalms.example
http:
  max_retries: 1
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, cfg.Crawler.Delay)
	require.Equal(t, "https://cpalms.example", cfg.Crawler.SiteOrigin)
	require.Equal(t, 1, cfg.HTTP.MaxRetries)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty user agent", func(c *Config) { c.Crawler.UserAgent = "" }},
		{"zero timeout", func(c *Config) { c.HTTP.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.HTTP.MaxRetries = -1 }},
		{"max below base", func(c *Config) { c.HTTP.MaxDelay = c.HTTP.BaseDelay - time.Second }},
		{"factor below one", func(c *Config) { c.HTTP.BackoffFactor = 0.5 }},
		{"missing checkpoint path", func(c *Config) { c.Checkpoint.Path = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			v := viper.New()
			SetDefaults(v)
			cfg, err := FromViper(v)
			require.NoError(t, err)

			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
