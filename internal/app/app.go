// Package app provides the core application initialization and lifecycle management.
package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/law-makers/casecrawl/internal/browser"
	"github.com/law-makers/casecrawl/internal/config"
	"github.com/law-makers/casecrawl/internal/crawler"
	"github.com/law-makers/casecrawl/internal/ratelimit"
	"github.com/law-makers/casecrawl/internal/sink"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds the dependencies shared by the CLI commands.
//
// The browser is started lazily so that help and validation paths never
// spawn Chrome. Use Close() to release it.
type Application struct {
	Config *config.Config
	Logger *zerolog.Logger
	Pacer  *ratelimit.Pacer

	browserMu sync.Mutex
	browser   *browser.Browser
	closers   []io.Closer
	startTime time.Time
}

// New creates the application from a validated config
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer = os.Stderr
	if !cfg.JSONLog {
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()
	logger := log.Logger

	logger.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	pacer := ratelimit.NewPacer(cfg.ActionRPS, cfg.ActionBurst, cfg.DelayScale)
	logger.Debug().
		Float64("action_rps", cfg.ActionRPS).
		Int("action_burst", cfg.ActionBurst).
		Float64("delay_scale", cfg.DelayScale).
		Msg("Pacer initialized")

	return &Application{
		Config:    cfg,
		Logger:    &logger,
		Pacer:     pacer,
		startTime: time.Now(),
	}, nil
}

// EnsureBrowser starts Chrome on first use and returns it
func (a *Application) EnsureBrowser() (*browser.Browser, error) {
	a.browserMu.Lock()
	defer a.browserMu.Unlock()

	if a.browser != nil {
		return a.browser, nil
	}

	cfg := a.Config
	headers, err := cfg.HeaderMap()
	if err != nil {
		return nil, err
	}
	a.Logger.Debug().Bool("headless", cfg.Headless).Int("headers", len(headers)).Msg("Starting browser")
	b, err := browser.Launch(browser.Options{
		Headless:   cfg.Headless,
		ChromePath: cfg.ChromePath,
		UserAgent:  cfg.UserAgent,
		Proxy:      cfg.Proxy,
		Headers:    headers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	a.browser = b
	return b, nil
}

// CrawlOptions maps the config onto orchestrator options
func (a *Application) CrawlOptions() crawler.Options {
	cfg := a.Config
	opts := crawler.DefaultOptions()
	opts.StartURL = cfg.StartURL
	opts.TargetCount = cfg.TargetCount
	opts.DetailBase = cfg.DetailBase
	opts.DebugDir = cfg.OutputDir
	opts.NavigationTimeout = cfg.NavigationTimeout
	opts.Detail.NavigationTimeout = cfg.NavigationTimeout
	opts.Detail.KeepHTML = cfg.Markdown
	return opts
}

// Sinks builds the configured record sinks for a session starting at
// startedAt. It also returns the paths that will be written.
func (a *Application) Sinks(startedAt time.Time) (crawler.Sink, []string, error) {
	cfg := a.Config

	files, err := sink.NewFileSink(cfg.OutputDir, startedAt)
	if err != nil {
		return nil, nil, err
	}
	sinks := sink.Multi{files}
	outputs := []string{files.JSONPath(), files.CSVPath(), files.SimpleCSVPath()}

	if cfg.SQLitePath != "" {
		db, err := sink.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db)
		sinks = append(sinks, db)
		outputs = append(outputs, cfg.SQLitePath)
	}

	if cfg.Markdown {
		dir := filepath.Join(cfg.OutputDir, "details")
		archive, err := sink.NewMarkdownArchive(dir)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, archive)
		outputs = append(outputs, dir)
	}

	a.Logger.Debug().Strs("outputs", outputs).Msg("Sinks initialized")
	return sinks, outputs, nil
}

// Close shuts down the browser and any open sinks. Errors are logged and
// do not stop the remaining steps.
func (a *Application) Close() error {
	a.Logger.Debug().Msg("Shutting down application")

	a.browserMu.Lock()
	if a.browser != nil {
		if err := a.browser.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser")
		}
		a.browser = nil
	}
	a.browserMu.Unlock()

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing sink")
		}
	}
	a.closers = nil

	a.Logger.Debug().Dur("uptime", a.Uptime()).Msg("Application shutdown complete")
	return nil
}

// StartedAt returns when the application was created. Export file names
// are stamped with it.
func (a *Application) StartedAt() time.Time {
	return a.startTime
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
