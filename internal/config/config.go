// Package config loads the API configuration from the environment, an optional .env file
// and an optional YAML overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the full API configuration.
type Config struct {
	AppEnv        string `yaml:"app_env" validate:"omitempty,oneof=development production test"`
	Port          string `yaml:"port" validate:"required,numeric"`
	AllowedOrigin string `yaml:"allowed_origin" validate:"required"`

	JWTSecret string `yaml:"jwt_secret" validate:"required"`

	// BackendBaseURL is the catalog REST backend that receives submissions.
	BackendBaseURL string        `yaml:"backend_base_url" validate:"required,url"`
	BackendTimeout time.Duration `yaml:"backend_timeout" validate:"gt=0"`

	// DBDSN enables draft persistence when set.
	DBDSN string `yaml:"db_dsn"`

	// GeminiAPIKey enables attribute suggestions when set.
	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model" validate:"required"`

	MaxCombinations int           `yaml:"max_combinations" validate:"gte=0"`
	SessionIdle     time.Duration `yaml:"session_idle" validate:"gt=0"`
	MaxImageBytes   int64         `yaml:"max_image_bytes" validate:"gt=0"`
}

// Default returns the configuration used for every key that is not set.
func Default() Config {
	return Config{
		AppEnv:          "production",
		Port:            "8080",
		AllowedOrigin:   "http://localhost:5173",
		BackendTimeout:  15 * time.Second,
		GeminiModel:     "gemini-1.5-flash",
		MaxCombinations: 500,
		SessionIdle:     60 * time.Minute,
		MaxImageBytes:   5 << 20,
	}
}

// Development reports whether the API runs in development mode.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// Load reads .env (if present), the environment and the CATALOG_CONFIG_FILE overlay, then
// validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		zap.S().Warnw("could not load .env file, relying on system environment variables")
	}
	c, err := FromEnv(os.LookupEnv)
	if err != nil {
		return c, err
	}
	if path, ok := os.LookupEnv("CATALOG_CONFIG_FILE"); ok && path != "" {
		if err := c.Overlay(path); err != nil {
			return c, err
		}
	}
	return c, c.Validate()
}

// FromEnv builds a Config from environment lookups on top of Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("APP_ENV", &c.AppEnv)
	str("APP_PORT", &c.Port)
	str("ALLOWED_ORIGIN", &c.AllowedOrigin)
	str("JWT_SECRET", &c.JWTSecret)
	str("BACKEND_BASE_URL", &c.BackendBaseURL)
	str("DB_DSN", &c.DBDSN)
	str("GEMINI_API_KEY", &c.GeminiAPIKey)
	str("GEMINI_MODEL", &c.GeminiModel)

	ints := []struct {
		key string
		set func(int64)
	}{
		{"BACKEND_TIMEOUT_SECONDS", func(n int64) { c.BackendTimeout = time.Duration(n) * time.Second }},
		{"MAX_COMBINATIONS", func(n int64) { c.MaxCombinations = int(n) }},
		{"SESSION_IDLE_MINUTES", func(n int64) { c.SessionIdle = time.Duration(n) * time.Minute }},
		{"MAX_IMAGE_BYTES", func(n int64) { c.MaxImageBytes = n }},
	}
	for _, i := range ints {
		v, ok := lookup(i.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c, fmt.Errorf("%s: %w", i.key, err)
		}
		i.set(n)
	}
	return c, nil
}

// Overlay replaces every key present in the YAML file at path.
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks required keys and ranges.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fe := verrs[0]
		return fmt.Errorf("invalid config: %s failed on %q", fe.Field(), fe.Tag())
	}
	return err
}
