package config

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if err := validateURL(c.StartURL); err != nil {
		return fmt.Errorf("start url: %w", err)
	}
	if err := validateURL(c.DetailBase); err != nil {
		return fmt.Errorf("detail base: %w", err)
	}
	if c.TargetCount <= 0 || c.TargetCount > DefaultMaxTargetCount {
		return fmt.Errorf("target count must be between 1 and %d", DefaultMaxTargetCount)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory must be set")
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.DelayScale < 0 {
		return fmt.Errorf("delay scale must be >= 0")
	}
	if c.ActionRPS <= 0 || c.ActionBurst <= 0 {
		return fmt.Errorf("action rate and burst must be > 0")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if _, err := c.HeaderMap(); err != nil {
		return err
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			return fmt.Errorf("proxy: %w", err)
		}
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}
	return nil
}
