// Package config loads runtime settings for the certupload executables from
// the environment. Every variable carries the CERTUPLOAD_ prefix.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "CERTUPLOAD_"

// Config is the application configuration.
type Config struct {
	// APIBaseURL is the backend serving /profile/all and /templates.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8086"`
	// AuthToken is used as-is when set. It wins over SessionFile.
	AuthToken string `env:"AUTH_TOKEN"`
	// SessionFile is a YAML file holding the authToken key.
	SessionFile string `env:"SESSION_FILE"`
	// Contract overrides the embedded API description: a file path, an
	// http(s) URL or "fs:<path>".
	Contract string `env:"CONTRACT"`
	// HTTPTimeout bounds each request. Zero means no timeout.
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"0s"`

	Log LogConfig `envPrefix:"LOG_"`

	Theme        string `env:"THEME"`
	ThemeVariant string `env:"THEME_VARIANT"`

	DevServer DevServerConfig `envPrefix:"DEVSERVER_"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`
}

// DevServerConfig configures certupload-devserver.
type DevServerConfig struct {
	Addr  string `env:"ADDR" envDefault:":8086"`
	Token string `env:"TOKEN"`
}

// Load reads envFile (".env" when empty) if it exists, then parses and
// validates the environment. A missing env file is not an error.
func Load(envFile string) (Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Read is Load without Validate, for callers that apply overrides first.
func Read(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}
	return parseEnv()
}

// Parse reads and validates the environment only.
func Parse() (Config, error) {
	cfg, err := parseEnv()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("config: parse env: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize trims values and normalises enumerations.
func (c *Config) Sanitize() {
	c.APIBaseURL = strings.TrimSpace(c.APIBaseURL)
	c.AuthToken = strings.TrimSpace(c.AuthToken)
	c.SessionFile = strings.TrimSpace(c.SessionFile)
	c.Contract = strings.TrimSpace(c.Contract)
	c.Theme = strings.TrimSpace(c.Theme)
	c.ThemeVariant = strings.TrimSpace(c.ThemeVariant)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.HTTPTimeout < 0 {
		c.HTTPTimeout = 0
	}
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: %sAPI_BASE_URL must be an absolute URL, got %q", EnvPrefix, c.APIBaseURL)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}
