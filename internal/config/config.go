// Package config loads the portfolio server's settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Amila1P/portfolio/internal/typing"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. Underscores separate
// nesting levels: PORTFOLIO_SMTP_HOST sets smtp.host.
const EnvPrefix = "PORTFOLIO_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Content ContentConfig `koanf:"content"`
	DB      DBConfig      `koanf:"db"`
	SMTP    SMTPConfig    `koanf:"smtp"`
	Admin   AdminConfig   `koanf:"admin"`
	Session SessionConfig `koanf:"session"`
	Reveal  RevealConfig  `koanf:"reveal"`
	Typing  typing.Delays `koanf:"typing"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
	// Mode is the gin mode: debug, release or test.
	Mode string `koanf:"mode"`
}

type ContentConfig struct {
	// Path of the content YAML. Empty serves the embedded default.
	Path  string `koanf:"path"`
	Watch bool   `koanf:"watch"`
}

type DBConfig struct {
	Path string `koanf:"path"`
}

type SMTPConfig struct {
	Host string `koanf:"host"`
	Port string `koanf:"port"`
	User string `koanf:"user"`
	Pass string `koanf:"pass"`
	To   string `koanf:"to"`
}

type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type RevealConfig struct {
	// Observe enables per-section visibility reports. Disabled, every
	// section renders revealed.
	Observe   bool    `koanf:"observe"`
	Threshold float64 `koanf:"threshold"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: "8080", Mode: "debug"},
		DB:      DBConfig{Path: "data/portfolio.db"},
		SMTP:    SMTPConfig{Host: "smtp.gmail.com", Port: "587"},
		Session: SessionConfig{TTL: 30 * time.Minute},
		Reveal:  RevealConfig{Observe: true, Threshold: 0.3},
		Typing:  typing.DefaultDelays,
	}
}

// Load reads the YAML file at path when it exists, then overlays
// PORTFOLIO_* environment variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

var validModes = map[string]bool{"debug": true, "release": true, "test": true}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if !validModes[c.Server.Mode] {
		errs = append(errs, fmt.Errorf("invalid server.mode %q: must be one of debug, release, test", c.Server.Mode))
	}
	if c.DB.Path == "" {
		errs = append(errs, errors.New("db.path is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Reveal.Threshold <= 0 || c.Reveal.Threshold > 1 {
		errs = append(errs, fmt.Errorf("reveal.threshold %v must be in (0, 1]", c.Reveal.Threshold))
	}
	if c.Typing.Type < 0 || c.Typing.Hold < 0 || c.Typing.Delete < 0 || c.Typing.Pause < 0 {
		errs = append(errs, errors.New("typing delays must not be negative"))
	}
	return errors.Join(errs...)
}

// MailConfigured reports whether SMTP credentials are present.
func (c *Config) MailConfigured() bool {
	return c.SMTP.User != "" && c.SMTP.Pass != ""
}
