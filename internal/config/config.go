package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environments of the gateway.
const (
	EnvProduction  = "production"
	EnvSandbox     = "sandbox"
	EnvIntegration = "integration"
)

// Auth modes for the payment API.
const (
	AuthBasic  = "basic"
	AuthBearer = "bearer"
)

type Config struct {
	PrivateKey     string
	PublicKey      string
	Env            string
	Auth           string
	Locale         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	Debug          bool
	RateLimit      float64
	// BaseURL replaces the base URL of every API surface when set.
	BaseURL     string
	JournalPath string
	DBSource    string
	Port        string
}

// Load reads the SDK configuration from the environment.
func Load() (*Config, error) {
	key := os.Getenv("PAYGATE_PRIVATE_KEY")
	if key == "" {
		return nil, fmt.Errorf("PAYGATE_PRIVATE_KEY environment variable is required")
	}
	return FromEnv(key)
}

// LoadServer reads the settings of the mock gateway, which needs no key.
func LoadServer() (*Config, error) {
	return FromEnv(os.Getenv("PAYGATE_PRIVATE_KEY"))
}

// FromEnv builds a configuration for key, taking every other setting from the
// environment.
func FromEnv(key string) (*Config, error) {
	cfg := &Config{
		PrivateKey:  key,
		PublicKey:   os.Getenv("PAYGATE_PUBLIC_KEY"),
		Env:         strings.ToLower(os.Getenv("PAYGATE_ENV")),
		Auth:        strings.ToLower(os.Getenv("PAYGATE_AUTH")),
		Locale:      os.Getenv("PAYGATE_LOCALE"),
		BaseURL:     strings.TrimRight(os.Getenv("PAYGATE_BASE_URL"), "/"),
		JournalPath: os.Getenv("PAYGATE_JOURNAL_PATH"),
		DBSource:    os.Getenv("DB_SOURCE"),
		Port:        os.Getenv("SERVER_PORT"),
	}

	if cfg.Env == "" {
		cfg.Env = EnvFromKey(key)
	}
	switch cfg.Env {
	case EnvProduction, EnvSandbox, EnvIntegration:
	default:
		return nil, fmt.Errorf("PAYGATE_ENV: unknown environment %q", cfg.Env)
	}

	if cfg.Auth == "" {
		cfg.Auth = AuthBasic
	}
	if cfg.Auth != AuthBasic && cfg.Auth != AuthBearer {
		return nil, fmt.Errorf("PAYGATE_AUTH: unknown auth mode %q", cfg.Auth)
	}

	if cfg.Locale == "" {
		cfg.Locale = "en_US"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	var err error
	if cfg.Timeout, err = duration("PAYGATE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = duration("PAYGATE_CONNECT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if v := os.Getenv("PAYGATE_DEBUG"); v != "" {
		if cfg.Debug, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("PAYGATE_DEBUG: %w", err)
		}
	}
	if v := os.Getenv("PAYGATE_RATE_LIMIT"); v != "" {
		if cfg.RateLimit, err = strconv.ParseFloat(v, 64); err != nil || cfg.RateLimit < 0 {
			return nil, fmt.Errorf("PAYGATE_RATE_LIMIT: invalid value %q", v)
		}
	}
	return cfg, nil
}

// EnvFromKey derives the environment from a key prefix: "p-" keys are
// production keys, everything else is treated as sandbox.
func EnvFromKey(key string) string {
	if strings.HasPrefix(key, "p-") {
		return EnvProduction
	}
	return EnvSandbox
}

// duration accepts Go durations ("90s") and plain seconds ("90").
func duration(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
