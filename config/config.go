// Package config loads the explorer's settings from a YAML file, an optional
// .env file and RESTCAT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/broady/restcat"
	"github.com/broady/restcat/transport"
)

type Config struct {
	Catalog string        `yaml:"catalog" validate:"required"`
	Server  ServerConfig  `yaml:"server"`
	Target  TargetConfig  `yaml:"target"`
	Engine  EngineConfig  `yaml:"engine"`
	History HistoryConfig `yaml:"history"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`
	Watch       bool     `yaml:"watch"`
}

type TargetConfig struct {
	BaseURL            string        `yaml:"base_url" validate:"omitempty,url"`
	Auth               AuthConfig    `yaml:"auth"`
	Timeout            time.Duration `yaml:"timeout" validate:"gte=0"`
	MaxResponseKB      int           `yaml:"max_response_kb" validate:"gte=0"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

type AuthConfig struct {
	Method   string `yaml:"method" validate:"omitempty,oneof=basic token bearer none"`
	Username string `yaml:"username" validate:"required_if=Method basic"`
	Password string `yaml:"password"`
	Token    string `yaml:"token" validate:"required_if=Method token,required_if=Method bearer"`
}

type EngineConfig struct {
	PathMode      string `yaml:"path_mode" validate:"oneof=strict lenient"`
	AllowUnknown  bool   `yaml:"allow_unknown"`
	ApplyDefaults bool   `yaml:"apply_defaults"`
}

type HistoryConfig struct {
	// Path of the SQLite database. Empty disables history.
	Path string `yaml:"path"`
}

// Defaults.
const (
	DefaultAddr          = "127.0.0.1:8089"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxResponseKB = 1024
)

var validate = validator.New()

// DefaultConfigPath returns ~/.config/restcat/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "restcat", "config.yaml")
}

// Load reads path (skipped when empty or when it is the default path and
// does not exist), loads .env from the working directory if present,
// applies RESTCAT_* overrides and fills defaults. The result is not
// validated; call Validate once any flag overrides are applied.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && path == DefaultConfigPath():
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

type envVar struct {
	name string
	set  func(v string) error
}

func str(dst *string) func(string) error {
	return func(v string) error { *dst = v; return nil }
}

func boolVar(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func (c *Config) applyEnv() error {
	vars := []envVar{
		{"RESTCAT_CATALOG", str(&c.Catalog)},
		{"RESTCAT_ADDR", str(&c.Server.Addr)},
		{"RESTCAT_WATCH", boolVar(&c.Server.Watch)},
		{"RESTCAT_BASE_URL", str(&c.Target.BaseURL)},
		{"RESTCAT_AUTH_METHOD", str(&c.Target.Auth.Method)},
		{"RESTCAT_USERNAME", str(&c.Target.Auth.Username)},
		{"RESTCAT_PASSWORD", str(&c.Target.Auth.Password)},
		{"RESTCAT_TOKEN", str(&c.Target.Auth.Token)},
		{"RESTCAT_TIMEOUT", func(v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Target.Timeout = d
			return nil
		}},
		{"RESTCAT_INSECURE_SKIP_VERIFY", boolVar(&c.Target.InsecureSkipVerify)},
		{"RESTCAT_PATH_MODE", str(&c.Engine.PathMode)},
		{"RESTCAT_ALLOW_UNKNOWN", boolVar(&c.Engine.AllowUnknown)},
		{"RESTCAT_APPLY_DEFAULTS", boolVar(&c.Engine.ApplyDefaults)},
		{"RESTCAT_HISTORY", str(&c.History.Path)},
	}
	for _, ev := range vars {
		v, ok := os.LookupEnv(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(v); err != nil {
			return fmt.Errorf("%s: %w", ev.name, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Target.Timeout == 0 {
		c.Target.Timeout = DefaultTimeout
	}
	if c.Target.MaxResponseKB == 0 {
		c.Target.MaxResponseKB = DefaultMaxResponseKB
	}
	if c.Engine.PathMode == "" {
		c.Engine.PathMode = restcat.PathStrict.String()
	}
	if c.Target.Auth.Method == "" {
		switch {
		case c.Target.Auth.Token != "":
			c.Target.Auth.Method = "token"
		case c.Target.Auth.Username != "":
			c.Target.Auth.Method = "basic"
		default:
			c.Target.Auth.Method = "none"
		}
	}
}

// Validate checks the loaded settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// NewEngine loads the configured catalog and returns an engine with the
// configured options.
func (c *Config) NewEngine(logger *slog.Logger) (*restcat.Engine, error) {
	build, err := c.Engine.Factory(logger)
	if err != nil {
		return nil, err
	}
	cat, err := restcat.LoadFile(c.Catalog)
	if err != nil {
		return nil, err
	}
	return build(cat), nil
}

// Factory returns a constructor that applies the engine options to a
// catalog, for use when the catalog is reloaded.
func (ec EngineConfig) Factory(logger *slog.Logger) (func(*restcat.Catalog) *restcat.Engine, error) {
	mode, err := restcat.ParsePathMode(ec.PathMode)
	if err != nil {
		return nil, err
	}
	return func(cat *restcat.Catalog) *restcat.Engine {
		e := restcat.New(cat).WithLogger(logger).WithPathMode(mode)
		if ec.AllowUnknown {
			e = e.WithUnknownParams()
		}
		if ec.ApplyDefaults {
			e = e.WithDefaults()
		}
		return e
	}, nil
}

// AuthStrategy returns the transport authentication for the configured
// method.
func (a AuthConfig) AuthStrategy() transport.AuthStrategy {
	switch a.Method {
	case "basic":
		return &transport.BasicAuth{Username: a.Username, Password: a.Password}
	case "token":
		return &transport.TokenAuth{Token: a.Token}
	case "bearer":
		return &transport.BearerAuth{Token: a.Token}
	default:
		return transport.NoAuth{}
	}
}

// Client returns a transport client for the target, or an error when no
// base URL is configured.
func (t TargetConfig) Client() (*transport.Client, error) {
	if t.BaseURL == "" {
		return nil, errors.New("no target base_url configured")
	}
	c := transport.New(t.BaseURL, t.Auth.AuthStrategy())
	c.Timeout = t.Timeout
	c.MaxBodyBytes = int64(t.MaxResponseKB) << 10
	if t.InsecureSkipVerify {
		c = c.WithInsecureSkipVerify()
	}
	return c, nil
}
