package main

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		bind:         "0.0.0.0",
		port:         8080,
		apiURL:       "https://api.example.com",
		rateLimitRPS: 5,
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing api url", func(c *Config) { c.apiURL = "" }, "--api-url is required"},
		{"relative api url", func(c *Config) { c.apiURL = "/api" }, "invalid --api-url"},
		{"port zero", func(c *Config) { c.port = 0 }, "invalid port"},
		{"port too large", func(c *Config) { c.port = 70000 }, "invalid port"},
		{"no rate", func(c *Config) { c.rateLimitRPS = 0 }, "invalid rate limit"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(cfg)
			err := cfg.validate()
			if c.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("validate() = %v, want error containing %q", err, c.wantErr)
			}
		})
	}
}

func TestNewCmdDefaults(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags(nil); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if cfg.port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.port)
	}
	if cfg.apiTimeout != 10*time.Second {
		t.Errorf("apiTimeout = %v, want 10s", cfg.apiTimeout)
	}
	if cfg.sessionTimeout != 2*time.Hour {
		t.Errorf("sessionTimeout = %v, want 2h", cfg.sessionTimeout)
	}
	if cfg.multiplayer {
		t.Error("multiplayer should be disabled by default")
	}
}

func TestNewCmdReadsEnvironment(t *testing.T) {
	t.Setenv("KARTU_API_URL", "http://localhost:3000")
	t.Setenv("KARTU_PORT", "9090")
	t.Setenv("KARTU_MULTIPLAYER", "true")

	cfg := &Config{}
	newCmd(cfg)

	if cfg.apiURL != "http://localhost:3000" {
		t.Errorf("apiURL = %q, want env value", cfg.apiURL)
	}
	if cfg.port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.port)
	}
	if !cfg.multiplayer {
		t.Error("multiplayer should be enabled from env")
	}
}

func TestNewCmdFlagsOverride(t *testing.T) {
	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.ParseFlags([]string{"--api-url=http://api:3000", "--rate_limit_rps=7", "-p", "1234"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if cfg.apiURL != "http://api:3000" || cfg.rateLimitRPS != 7 || cfg.port != 1234 {
		t.Errorf("flags not applied: %+v", cfg)
	}
}
