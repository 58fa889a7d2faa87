// Package config loads the service configuration from yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        int `yaml:"port"`
		MaxUploadMB int `yaml:"maxUploadMB"`
	} `yaml:"server"`

	Store struct {
		Driver string `yaml:"driver"` // memory | sqlite
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`

	Cells struct {
		Path string `yaml:"path"`
	} `yaml:"cells"`

	Parser struct {
		TimezoneOffsetHours float64 `yaml:"timezoneOffsetHours"`
		SerialShiftHours    float64 `yaml:"serialShiftHours"`
		MinYear             int     `yaml:"minYear"`
		MaxYear             int     `yaml:"maxYear"`
	} `yaml:"parser"`

	Logging struct {
		Level      string `yaml:"level"`
		BasePath   string `yaml:"basePath"`
		Filename   string `yaml:"filename"`
		MaxSizeMB  int    `yaml:"maxSizeMB"`
		MaxBackups int    `yaml:"maxBackups"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// Default is the configuration used when no file is present; Load starts
// from it, so a file only needs the keys it changes.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.MaxUploadMB = 50
	c.Store.Driver = "memory"
	c.Parser.TimezoneOffsetHours = 5
	c.Parser.SerialShiftHours = 5
	c.Parser.MinYear = 2010
	c.Parser.MaxYear = 2024
	c.Logging.Level = "info"
	c.Logging.Filename = "cdr-insight.log"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 5
	return &c
}

// Path is $CONFIG_PATH, or config.yaml.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.DSN == "" {
			return errors.New("store.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver %q: want memory or sqlite", c.Store.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.maxUploadMB must be positive")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Parser.MinYear >= c.Parser.MaxYear {
		return fmt.Errorf("parser.minYear %d must be below parser.maxYear %d", c.Parser.MinYear, c.Parser.MaxYear)
	}
	return nil
}

// LogLevel is logging.level; an empty level is info.
func (c *Config) LogLevel() slog.Level {
	l, _ := parseLevel(c.Logging.Level)
	return l
}

// LogFile is the rotated log path, or "" to log to stdout.
func (c *Config) LogFile() string {
	if c.Logging.BasePath == "" {
		return ""
	}
	return filepath.Join(c.Logging.BasePath, c.Logging.Filename)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level %q: want debug, info, warn or error", s)
	}
	return l, nil
}

func (c *Config) Location() *time.Location {
	secs := int(c.Parser.TimezoneOffsetHours * 3600)
	return time.FixedZone(fmt.Sprintf("UTC%+g", c.Parser.TimezoneOffsetHours), secs)
}

func (c *Config) SerialShift() time.Duration {
	return time.Duration(c.Parser.SerialShiftHours * float64(time.Hour))
}

func (c *Config) MaxUploadBytes() int64 { return int64(c.Server.MaxUploadMB) << 20 }
