// Package config loads the catalog server's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Redis   RedisConfig   `toml:"redis"`
	API     APIConfig     `toml:"api"`
	Session SessionConfig `toml:"session"`
	Logging LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Listen          string   `toml:"listen"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// RedisConfig holds the Redis connection used for the response cache and
// the shared rate limit state.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// APIConfig holds collection API client settings.
type APIConfig struct {
	BaseURL        string   `toml:"base_url"`
	UserAgent      string   `toml:"user_agent"`
	RespectExpires bool     `toml:"respect_expires"`
	MaxRetries     int      `toml:"max_retries"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// SessionConfig holds browsing session settings.
type SessionConfig struct {
	PageSize        int      `toml:"page_size"`
	BulkPageSize    int      `toml:"bulk_page_size"`
	BulkPageTimeout Duration `toml:"bulk_page_timeout"`
	MaxIdle         Duration `toml:"max_idle"`
	SweepInterval   Duration `toml:"sweep_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Duration is a time.Duration written as a string such as "30s" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		API: APIConfig{
			BaseURL:        "https://api.artic.edu/api/v1",
			UserAgent:      "artwork-catalog/0.1 (ops@example.com)",
			RespectExpires: true,
			MaxRetries:     2,
			InitialBackoff: Duration{500 * time.Millisecond},
			MaxBackoff:     Duration{10 * time.Second},
			RequestTimeout: Duration{30 * time.Second},
		},
		Session: SessionConfig{
			PageSize:        12,
			BulkPageSize:    100,
			BulkPageTimeout: Duration{30 * time.Second},
			MaxIdle:         Duration{30 * time.Minute},
			SweepInterval:   Duration{time.Minute},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults. Keys the file sets replace the default; unknown keys are errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("failed to parse config %s: %s", path, strict.String())
		}
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Listen == "" {
		errs = append(errs, errors.New("server.listen is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q is not an absolute url", c.API.BaseURL))
	}
	if c.API.UserAgent == "" {
		errs = append(errs, errors.New("api.user_agent is required"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api.max_retries must be >= 0 (got %d)", c.API.MaxRetries))
	}
	if c.Session.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("session.page_size must be > 0 (got %d)", c.Session.PageSize))
	}
	if c.Session.BulkPageSize <= 0 {
		errs = append(errs, fmt.Errorf("session.bulk_page_size must be > 0 (got %d)", c.Session.BulkPageSize))
	}
	if c.Session.SweepInterval.Duration <= 0 {
		errs = append(errs, errors.New("session.sweep_interval must be positive"))
	}
	if c.Session.MaxIdle.Duration <= 0 {
		errs = append(errs, errors.New("session.max_idle must be positive"))
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	return errors.Join(errs...)
}
