package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Crawl
	StartURL    string `yaml:"start_url"`
	DetailBase  string `yaml:"detail_base"`
	TargetCount int    `yaml:"target_count"`

	// Output
	OutputDir    string `yaml:"output_dir"`
	SQLitePath   string `yaml:"sqlite_path"`
	Markdown     bool   `yaml:"markdown"`
	ShowProgress bool   `yaml:"progress"`

	// Browser
	Headless          bool          `yaml:"headless"`
	ChromePath        string        `yaml:"chrome_path"`
	UserAgent         string        `yaml:"user_agent"`
	Proxy             string        `yaml:"proxy"`
	Headers           []string      `yaml:"headers"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	// Pacing
	DelayScale  float64 `yaml:"delay_scale"`
	ActionRPS   float64 `yaml:"action_rps"`
	ActionBurst int     `yaml:"action_burst"`
}

// Default returns a Config populated with the built-in defaults
func Default() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		StartURL:          DefaultStartURL,
		DetailBase:        DefaultDetailBase,
		TargetCount:       DefaultTargetCount,
		OutputDir:         DefaultOutputDir,
		ShowProgress:      DefaultShowProgress,
		Headless:          DefaultBrowserHeadless,
		UserAgent:         DefaultUserAgent,
		NavigationTimeout: DefaultNavigationTimeout,
		DelayScale:        DefaultDelayScale,
		ActionRPS:         DefaultActionRPS,
		ActionBurst:       DefaultActionBurst,
	}
}

// Load builds a Config by combining defaults, an optional YAML file,
// CASECRAWL_* environment variables and CLI flags, in that order.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	var flags *pflag.FlagSet
	if cmd != nil {
		flags = cmd.Flags()
	}

	path := os.Getenv(DefaultEnvPrefix + "CONFIG")
	if f := lookup(flags, "config"); f != nil && f.Value.String() != "" {
		path = f.Value.String()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	env := func(name string) string { return getenv(DefaultEnvPrefix + name) }

	for name, dst := range map[string]*string{
		"LOG_LEVEL":   &cfg.LogLevel,
		"START_URL":   &cfg.StartURL,
		"DETAIL_BASE": &cfg.DetailBase,
		"OUTPUT_DIR":  &cfg.OutputDir,
		"SQLITE_PATH": &cfg.SQLitePath,
		"CHROME_PATH": &cfg.ChromePath,
		"USER_AGENT":  &cfg.UserAgent,
		"PROXY":       &cfg.Proxy,
	} {
		if v := env(name); v != "" {
			*dst = v
		}
	}

	if v := env("HEADERS"); v != "" {
		cfg.Headers = append(cfg.Headers, strings.Split(v, ";")...)
	}
	if v := env("TARGET"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sTARGET: %w", DefaultEnvPrefix, err)
		}
		cfg.TargetCount = n
	}
	if v := env("DELAY_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sDELAY_SCALE: %w", DefaultEnvPrefix, err)
		}
		cfg.DelayScale = f
	}
	if v := env("HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sHEADLESS: %w", DefaultEnvPrefix, err)
		}
		cfg.Headless = b
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}

	var err error
	str := func(name string, dst *string) {
		if f := changed(flags, name); f != nil {
			*dst = f.Value.String()
		}
	}
	boolean := func(name string, dst *bool) {
		if f := changed(flags, name); f != nil && err == nil {
			*dst, err = strconv.ParseBool(f.Value.String())
		}
	}

	str("url", &cfg.StartURL)
	str("detail-base", &cfg.DetailBase)
	str("output", &cfg.OutputDir)
	str("sqlite", &cfg.SQLitePath)
	str("chrome-path", &cfg.ChromePath)
	str("user-agent", &cfg.UserAgent)
	str("proxy", &cfg.Proxy)
	boolean("headless", &cfg.Headless)
	boolean("markdown", &cfg.Markdown)
	boolean("json", &cfg.JSONLog)
	if err != nil {
		return err
	}

	if f := changed(flags, "header"); f != nil {
		hs, e := flags.GetStringArray("header")
		if e != nil {
			return e
		}
		cfg.Headers = append(cfg.Headers, hs...)
	}
	if f := changed(flags, "target"); f != nil {
		n, e := flags.GetInt("target")
		if e != nil {
			return e
		}
		cfg.TargetCount = n
	}
	if f := changed(flags, "delay-scale"); f != nil {
		v, e := flags.GetFloat64("delay-scale")
		if e != nil {
			return e
		}
		cfg.DelayScale = v
	}
	if f := changed(flags, "timeout"); f != nil {
		d, e := time.ParseDuration(f.Value.String())
		if e != nil {
			return fmt.Errorf("invalid timeout: %w", e)
		}
		cfg.NavigationTimeout = d
	}

	if f := lookup(flags, "no-progress"); f != nil && f.Value.String() == "true" {
		cfg.ShowProgress = false
	}
	if f := lookup(flags, "verbose"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "debug"
	}
	if f := lookup(flags, "quiet"); f != nil && f.Value.String() == "true" {
		cfg.LogLevel = "error"
		cfg.ShowProgress = false
	}
	if cfg.JSONLog || cfg.LogLevel == "debug" || cfg.LogLevel == "info" {
		cfg.ShowProgress = false
	}
	return nil
}

// HeaderMap parses "Key: Value" header strings
func (c *Config) HeaderMap() (map[string]string, error) {
	m := make(map[string]string, len(c.Headers))
	for _, h := range c.Headers {
		key, value, ok := strings.Cut(h, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed header %q, want \"Key: Value\"", h)
		}
		m[key] = strings.TrimSpace(value)
	}
	return m, nil
}

func lookup(flags *pflag.FlagSet, name string) *pflag.Flag {
	if flags == nil {
		return nil
	}
	return flags.Lookup(name)
}

func changed(flags *pflag.FlagSet, name string) *pflag.Flag {
	if f := lookup(flags, name); f != nil && f.Changed {
		return f
	}
	return nil
}
