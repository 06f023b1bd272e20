package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/feedroll/feedroll/pkg/domain"
)

//go:generate go run ../../cmd/schema --out schema.json

// Config holds the application configuration
type Config struct {
	Server   ServerConfig            `yaml:"server" toml:"server" json:"server" jsonschema:"description=HTTP server configuration"`
	Database DatabaseConfig          `yaml:"database" toml:"database" json:"database" jsonschema:"description=Database configuration"`
	Schedule ScheduleConfig          `yaml:"schedule" toml:"schedule" json:"schedule" jsonschema:"description=Refresh scheduling configuration"`
	Render   RenderConfig            `yaml:"render" toml:"render" json:"render" jsonschema:"description=Static output configuration"`
	Feeds    []domain.FeedDescriptor `yaml:"feeds" toml:"feeds" json:"feeds" jsonschema:"required,description=Feeds to aggregate"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" toml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" toml:"dsn" json:"dsn" jsonschema:"description=SQLite connection string"`
	MaxOpenConns    int           `yaml:"max_open_conns" toml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
	MaxIdleConns    int           `yaml:"max_idle_conns" toml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=1h,description=Connection maximum lifetime"`
}

// ScheduleConfig holds refresh cycle settings
type ScheduleConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval" toml:"update_interval" json:"update_interval" jsonschema:"default=15m,description=Interval between refresh cycles"`
	Retention      time.Duration `yaml:"retention" toml:"retention" json:"retention" jsonschema:"default=168h,description=Posts older than this are pruned"`
	MaxWorkers     int           `yaml:"max_workers" toml:"max_workers" json:"max_workers" jsonschema:"default=10,description=Maximum feeds fetched concurrently (-1 for unbounded)"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" toml:"fetch_timeout" json:"fetch_timeout" jsonschema:"default=30s,description=Timeout of a single feed request"`
	UserAgent      string        `yaml:"user_agent" toml:"user_agent" json:"user_agent" jsonschema:"description=User agent for feed requests (browser-like if empty)"`
}

// RenderConfig holds static output settings
type RenderConfig struct {
	OutputDir    string        `yaml:"output_dir" toml:"output_dir" json:"output_dir" jsonschema:"default=data/static,description=Directory for rendered files"`
	Title        string        `yaml:"title" toml:"title" json:"title" jsonschema:"default=feedroll,description=Site title"`
	BaseURL      string        `yaml:"base_url" toml:"base_url" json:"base_url" jsonschema:"description=Public URL of the site used in rss.xml"`
	RecentWindow time.Duration `yaml:"recent_window" toml:"recent_window" json:"recent_window" jsonschema:"default=24h,description=Posts newer than this are shown as recent"`
}

// Load reads configuration from a YAML or TOML file, the format is chosen by extension
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.Decode(expanded, &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse toml config: unknown field %q", undecoded[0].String())
		}
	case ".yml", ".yaml", "":
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	// server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// database, dsn default is owned by repository
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}

	// schedule
	if cfg.Schedule.UpdateInterval == 0 {
		cfg.Schedule.UpdateInterval = 15 * time.Minute
	}
	if cfg.Schedule.Retention == 0 {
		cfg.Schedule.Retention = 168 * time.Hour
	}
	if cfg.Schedule.MaxWorkers == 0 {
		cfg.Schedule.MaxWorkers = 10
	}
	if cfg.Schedule.FetchTimeout == 0 {
		cfg.Schedule.FetchTimeout = 30 * time.Second
	}

	// render
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = "data/static"
	}
	if cfg.Render.Title == "" {
		cfg.Render.Title = "feedroll"
	}
	if cfg.Render.RecentWindow == 0 {
		cfg.Render.RecentWindow = 24 * time.Hour
	}

	for i := range cfg.Feeds {
		cfg.Feeds[i].Link = strings.TrimSpace(cfg.Feeds[i].Link)
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return errors.New("server timeout must be at least 1 second")
	}
	if cfg.Schedule.UpdateInterval < time.Second {
		return errors.New("schedule.update_interval must be at least 1 second")
	}
	if cfg.Schedule.Retention < cfg.Render.RecentWindow {
		return errors.New("schedule.retention must not be shorter than render.recent_window")
	}
	if cfg.Schedule.MaxWorkers < -1 {
		return errors.New("schedule.max_workers must be positive or -1")
	}
	if cfg.Schedule.FetchTimeout < time.Second {
		return errors.New("schedule.fetch_timeout must be at least 1 second")
	}
	if cfg.Render.RecentWindow < time.Minute {
		return errors.New("render.recent_window must be at least 1 minute")
	}

	if len(cfg.Feeds) == 0 {
		return errors.New("at least one feed is required")
	}
	for i, f := range cfg.Feeds {
		u, err := url.Parse(f.Link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("feeds[%d]: link %q is not an http(s) URL", i, f.Link)
		}
	}
	if dups := lo.FindDuplicatesBy(cfg.Feeds, func(f domain.FeedDescriptor) string { return f.Link }); len(dups) > 0 {
		return fmt.Errorf("duplicate feed link %q", dups[0].Link)
	}

	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetStaticDir returns the directory with rendered files
func (c *Config) GetStaticDir() string {
	return c.Render.OutputDir
}
