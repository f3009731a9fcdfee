package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Reporting API
	APIBaseURL string

	// Fetch retry policy
	FetchRetries int
	FetchDelay   time.Duration
	FetchBackoff float64
	HTTPTimeout  time.Duration

	// Sorting locale for category/work tie-breaks
	Locale string

	// Backend selection: "api" or "memory"
	DataBackend string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		APIBaseURL: getEnv("PLANFACT_API_BASE_URL", ""),

		FetchRetries: getEnvInt("PLANFACT_FETCH_RETRIES", 1),
		FetchDelay:   getEnvDuration("PLANFACT_FETCH_DELAY", 700*time.Millisecond),
		FetchBackoff: getEnvFloat("PLANFACT_FETCH_BACKOFF", 1.0),
		HTTPTimeout:  getEnvDuration("PLANFACT_HTTP_TIMEOUT", 15*time.Second),

		Locale: getEnv("PLANFACT_LOCALE", "ru"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "api", "memory":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [api memory]", c.DataBackend))
	}

	if c.DataBackend == "api" {
		if strings.TrimSpace(c.APIBaseURL) == "" {
			errs = append(errs, "PLANFACT_API_BASE_URL is required when using the api backend")
		} else if u, err := url.Parse(c.APIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid API base URL '%s': must be an http(s) URL", c.APIBaseURL))
		}
	}

	if c.FetchRetries < 0 || c.FetchRetries > 10 {
		errs = append(errs, fmt.Sprintf("invalid fetch retries %d: must be between 0 and 10", c.FetchRetries))
	}
	if c.FetchDelay < 0 || c.FetchDelay > time.Minute {
		errs = append(errs, fmt.Sprintf("invalid fetch delay %v: must be between 0 and 1 minute", c.FetchDelay))
	}
	if c.FetchBackoff < 1.0 || c.FetchBackoff > 10.0 {
		errs = append(errs, fmt.Sprintf("invalid fetch backoff %v: must be between 1.0 and 10.0", c.FetchBackoff))
	}
	if c.HTTPTimeout < time.Second || c.HTTPTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid http timeout %v: must be between 1s and 5m", c.HTTPTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
