package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/broady/restcat/transport"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "config.yaml", `
catalog: testdata/catalog.json
server:
  addr: ":9000"
  cors_origins: ["http://localhost:3000"]
  watch: true
target:
  base_url: https://localhost:8089/services
  auth:
    username: admin
    password: changeme
  timeout: 5s
engine:
  path_mode: lenient
  apply_defaults: true
history:
  path: history.db
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	want := &Config{
		Catalog: "testdata/catalog.json",
		Server:  ServerConfig{Addr: ":9000", CORSOrigins: []string{"http://localhost:3000"}, Watch: true},
		Target: TargetConfig{
			BaseURL:       "https://localhost:8089/services",
			Auth:          AuthConfig{Method: "basic", Username: "admin", Password: "changeme"},
			Timeout:       5 * time.Second,
			MaxResponseKB: DefaultMaxResponseKB,
		},
		Engine:  EngineConfig{PathMode: "lenient", ApplyDefaults: true},
		History: HistoryConfig{Path: "history.db"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != DefaultAddr || cfg.Target.Timeout != DefaultTimeout || cfg.Engine.PathMode != "strict" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Target.Auth.Method != "none" {
		t.Errorf("expected auth method none, got %q", cfg.Target.Auth.Method)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "Catalog") {
		t.Errorf("expected a missing catalog error, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "RESTCAT_TOKEN=from-dotenv\nRESTCAT_CATALOG=dotenv.json\n")
	path := writeFile(t, dir, "config.yaml", "catalog: file.json\ntarget:\n  base_url: http://file\n")

	t.Setenv("RESTCAT_CATALOG", "env.json")
	t.Setenv("RESTCAT_TOKEN", "")
	os.Unsetenv("RESTCAT_TOKEN")
	t.Setenv("RESTCAT_TIMEOUT", "250ms")
	t.Setenv("RESTCAT_ALLOW_UNKNOWN", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// godotenv never overrides variables that are already set.
	if cfg.Catalog != "env.json" {
		t.Errorf("expected env catalog, got %q", cfg.Catalog)
	}
	if cfg.Target.Auth.Token != "from-dotenv" || cfg.Target.Auth.Method != "token" {
		t.Errorf("expected token auth from .env, got %+v", cfg.Target.Auth)
	}
	if cfg.Target.Timeout != 250*time.Millisecond || !cfg.Engine.AllowUnknown {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Target.BaseURL != "http://file" {
		t.Errorf("expected base url from file, got %q", cfg.Target.BaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected an error for an explicit missing file")
	}
	bad := writeFile(t, dir, "bad.yaml", "server: [")
	if _, err := Load(bad); err == nil {
		t.Error("expected a parse error")
	}
	t.Setenv("RESTCAT_WATCH", "sometimes")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "RESTCAT_WATCH") {
		t.Errorf("expected an env parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{Catalog: "c.json"}
		c.applyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad url", func(c *Config) { c.Target.BaseURL = "not a url" }, "BaseURL"},
		{"bad auth method", func(c *Config) { c.Target.Auth.Method = "kerberos" }, "Method"},
		{"basic needs username", func(c *Config) { c.Target.Auth.Method = "basic" }, "Username"},
		{"bearer needs token", func(c *Config) { c.Target.Auth.Method = "bearer" }, "Token"},
		{"bad path mode", func(c *Config) { c.Engine.PathMode = "loose" }, "PathMode"},
		{"negative size", func(c *Config) { c.Target.MaxResponseKB = -1 }, "MaxResponseKB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error mentioning %s, got %v", tt.field, err)
			}
		})
	}
}

func TestTargetClient(t *testing.T) {
	tc := TargetConfig{
		BaseURL:       "https://example.com/services",
		Auth:          AuthConfig{Method: "bearer", Token: "t"},
		Timeout:       time.Second,
		MaxResponseKB: 2,
	}
	c, err := tc.Client()
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if c.MaxBodyBytes != 2048 || c.Timeout != time.Second {
		t.Errorf("unexpected client limits %+v", c)
	}
	if _, ok := c.Auth.(*transport.BearerAuth); !ok {
		t.Errorf("expected bearer auth, got %T", c.Auth)
	}

	if _, err := (TargetConfig{}).Client(); err == nil {
		t.Error("expected an error without a base URL")
	}
}

func TestEngineFactory(t *testing.T) {
	if _, err := (EngineConfig{PathMode: "bogus"}).Factory(nil); err == nil {
		t.Error("expected an error for an unknown path mode")
	}

	cfg := &Config{Catalog: "../testdata/catalog.json", Engine: EngineConfig{PathMode: "lenient", ApplyDefaults: true}}
	e, err := cfg.NewEngine(nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	// Lenient mode ignores the extra path value; defaults fill count.
	req, err := e.Prepare("alerts/fired_alerts", "GET", map[string]string{"extra": "x"}, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if req.Query.Get("count") != "30" {
		t.Errorf("expected default count, got %v", req.Query)
	}
}
