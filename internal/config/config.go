package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	PolicyAdvisory = "advisory"
	PolicyBlocking = "blocking"

	minSigningKeyBytes = 32
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	MedSaveAPIURL     string        `mapstructure:"MEDSAVE_API_URL"`
	MedSaveTimeout    time.Duration `mapstructure:"MEDSAVE_TIMEOUT"`
	MedSaveRetries    int           `mapstructure:"MEDSAVE_RETRIES"`
	PostalAPIURL      string        `mapstructure:"POSTAL_API_URL"`
	SessionBackend    string        `mapstructure:"SESSION_BACKEND"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	SessionSigningKey string        `mapstructure:"SESSION_SIGNING_KEY"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	ValidationPolicy  string        `mapstructure:"VALIDATION_POLICY"`
	SearchDebounce    time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	RegNoPageSize     int           `mapstructure:"REGNO_PAGE_SIZE"`
	RegNoMaxPages     int           `mapstructure:"REGNO_MAX_PAGES"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	DraftBodyLimit    string        `mapstructure:"DRAFT_BODY_LIMIT"`
}

var keys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"MEDSAVE_API_URL",
	"MEDSAVE_TIMEOUT",
	"MEDSAVE_RETRIES",
	"POSTAL_API_URL",
	"SESSION_BACKEND",
	"REDIS_URL",
	"SESSION_TTL",
	"SESSION_SIGNING_KEY",
	"CORS_ORIGINS",
	"VALIDATION_POLICY",
	"SEARCH_DEBOUNCE",
	"REGNO_PAGE_SIZE",
	"REGNO_MAX_PAGES",
	"REQUEST_TIMEOUT",
	"BODY_LIMIT",
	"DRAFT_BODY_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MEDSAVE_API_URL", "https://www.pcds.co.in/medsaveapi.php")
	v.SetDefault("MEDSAVE_TIMEOUT", "15s")
	v.SetDefault("MEDSAVE_RETRIES", 2)
	v.SetDefault("POSTAL_API_URL", "https://api.postalpincode.in")
	v.SetDefault("SESSION_BACKEND", BackendMemory)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("VALIDATION_POLICY", PolicyAdvisory)
	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("REGNO_PAGE_SIZE", 50)
	v.SetDefault("REGNO_MAX_PAGES", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("DRAFT_BODY_LIMIT", "8M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	cfg.ValidationPolicy = strings.ToLower(strings.TrimSpace(cfg.ValidationPolicy))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.MedSaveAPIURL == "" {
		return fmt.Errorf("MEDSAVE_API_URL is required")
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when SESSION_BACKEND is %q", BackendRedis)
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be %q or %q, got %q", BackendMemory, BackendRedis, c.SessionBackend)
	}

	if c.ValidationPolicy != PolicyAdvisory && c.ValidationPolicy != PolicyBlocking {
		return fmt.Errorf("VALIDATION_POLICY must be %q or %q, got %q", PolicyAdvisory, PolicyBlocking, c.ValidationPolicy)
	}

	if c.IsProduction() && c.SessionSigningKey == "" {
		return fmt.Errorf("SESSION_SIGNING_KEY is required in production")
	}
	if c.SessionSigningKey != "" {
		key, err := hex.DecodeString(c.SessionSigningKey)
		if err != nil {
			return fmt.Errorf("SESSION_SIGNING_KEY is not valid hex: %w", err)
		}
		if len(key) < minSigningKeyBytes {
			return fmt.Errorf("SESSION_SIGNING_KEY must be at least %d bytes (%d hex chars), got %d bytes",
				minSigningKeyBytes, 2*minSigningKeyBytes, len(key))
		}
	}

	if c.RegNoPageSize <= 0 || c.RegNoMaxPages <= 0 {
		return fmt.Errorf("REGNO_PAGE_SIZE and REGNO_MAX_PAGES must be positive")
	}
	if c.MedSaveRetries < 0 {
		return fmt.Errorf("MEDSAVE_RETRIES must not be negative")
	}

	return nil
}

// SigningKey returns the decoded session signing key. Without a configured
// key a random one is generated, so tokens do not survive a restart.
func (c *Config) SigningKey() ([]byte, bool, error) {
	if c.SessionSigningKey != "" {
		key, err := hex.DecodeString(c.SessionSigningKey)
		return key, false, err
	}
	key := make([]byte, minSigningKeyBytes)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generating signing key: %w", err)
	}
	return key, true, nil
}
