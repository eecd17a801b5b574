package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_PATH", "PORT", "SERVER_HOST", "REDIS_ADDR", "LOG_BACKEND", "APP_ENV"} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("missing default file should not fail: %v", err)
	}
	if cfg.Server.Port != 3000 || cfg.Canvas.HistoryLimit != 20 || cfg.Relay.Redis.Addr != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if got := cfg.ServerAddress(); got != "0.0.0.0:3000" {
		t.Errorf("ServerAddress() = %q", got)
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing explicit file")
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  port: 8080
  read_timeout: 3s
relay:
  send_buffer: 16
  redis:
    addr: localhost:6379
    channel_prefix: test
logging:
  backend: zap
canvas:
  width: 1024
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Errorf("unset key lost its default: %v", cfg.Server.WriteTimeout)
	}
	if cfg.Relay.SendBuffer != 16 || cfg.Relay.Redis.Addr != "localhost:6379" || cfg.Relay.Redis.ChannelPrefix != "test" {
		t.Errorf("relay = %+v", cfg.Relay)
	}
	if cfg.Canvas.Width != 1024 || cfg.Canvas.Height != 600 {
		t.Errorf("canvas = %+v", cfg.Canvas)
	}
}

func TestLoadFromConfigPathEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeFile(t, "server:\n  port: 9000\n"))
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  port: 8080\n  host: 127.0.0.1\n")
	t.Setenv("PORT", "4000")
	t.Setenv("SERVER_HOST", "localhost")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_BACKEND", "zap")
	t.Setenv("APP_ENV", "prod")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerAddress() != "localhost:4000" {
		t.Errorf("address = %s", cfg.ServerAddress())
	}
	if cfg.Relay.Redis.Addr != "redis:6379" || cfg.Logging.Backend != "zap" || cfg.Logging.Env != "prod" {
		t.Errorf("env not applied: %+v %+v", cfg.Relay.Redis, cfg.Logging)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeFile(t, "server: [")); err == nil {
		t.Error("expected a parse error")
	}

	t.Setenv("PORT", "eighty")
	if _, err := Load(""); err == nil {
		t.Error("expected an error for a non numeric PORT")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(*Config)
		expectErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative timeout", func(c *Config) { c.Server.ReadTimeout = -time.Second }, true},
		{"no send buffer", func(c *Config) { c.Relay.SendBuffer = 0 }, true},
		{"no message size", func(c *Config) { c.Relay.MaxMessageSize = 0 }, true},
		{"no ping period", func(c *Config) { c.Relay.PingPeriod = 0 }, true},
		{"unknown backend", func(c *Config) { c.Logging.Backend = "logrus" }, true},
		{"empty canvas", func(c *Config) { c.Canvas.Width = 0 }, true},
		{"no history", func(c *Config) { c.Canvas.HistoryLimit = 0 }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.expectErr && err == nil {
				t.Error("expected an error")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
