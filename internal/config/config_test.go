package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:         "8080",
		FetchRetries: 1,
		FetchDelay:   700 * time.Millisecond,
		FetchBackoff: 1.0,
		HTTPTimeout:  15 * time.Second,
		Locale:       "ru",
		DataBackend:  "memory",
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_BACKEND", "PLANFACT_API_BASE_URL", "PLANFACT_FETCH_RETRIES", "PLANFACT_FETCH_DELAY", "PLANFACT_FETCH_BACKOFF", "PLANFACT_HTTP_TIMEOUT", "PLANFACT_LOCALE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" || cfg.DataBackend != "memory" {
		t.Fatalf("defaults wrong: %+v", cfg)
	}
	if cfg.FetchRetries != 1 || cfg.FetchDelay != 700*time.Millisecond || cfg.FetchBackoff != 1.0 {
		t.Fatalf("retry defaults wrong: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_BACKEND", "api")
	t.Setenv("PLANFACT_API_BASE_URL", "https://reports.example.com/api")
	t.Setenv("PLANFACT_FETCH_RETRIES", "3")
	t.Setenv("PLANFACT_FETCH_DELAY", "250ms")

	cfg := Load()
	if cfg.Port != "9090" || cfg.DataBackend != "api" {
		t.Fatalf("env not read: %+v", cfg)
	}
	if cfg.FetchRetries != 3 || cfg.FetchDelay != 250*time.Millisecond {
		t.Fatalf("retry env not read: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"bad port", func(c *Config) { c.Port = "web" }, "invalid port"},
		{"port range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"bad backend", func(c *Config) { c.DataBackend = "csv" }, "invalid data backend"},
		{"api without url", func(c *Config) { c.DataBackend = "api" }, "PLANFACT_API_BASE_URL"},
		{"api bad scheme", func(c *Config) { c.DataBackend = "api"; c.APIBaseURL = "ftp://x" }, "http(s)"},
		{"retries range", func(c *Config) { c.FetchRetries = 11 }, "fetch retries"},
		{"negative delay", func(c *Config) { c.FetchDelay = -time.Second }, "fetch delay"},
		{"backoff range", func(c *Config) { c.FetchBackoff = 0.5 }, "fetch backoff"},
		{"timeout range", func(c *Config) { c.HTTPTimeout = time.Millisecond }, "http timeout"},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.message) {
			t.Fatalf("%s: error %q does not mention %q", tc.name, err, tc.message)
		}
	}
}
