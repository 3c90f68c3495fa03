package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the reference API server configuration.
type Config struct {
	ServerPort         int           `env:"PORT"`
	DatabasePath       string        `env:"DATABASE_PATH"`
	JWTSecret          string        `env:"JWT_SECRET"`
	AccessTokenTTL     time.Duration
	AccessTokenMinutes int           `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	AppEnv             string        `env:"APP_ENV"`
	AllowedOrigins     []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	LogLevel           string        `env:"LOG_LEVEL"`
}

// Production reports whether cookies should carry the Secure flag.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Load loads the server configuration from environment variables or sets defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:         8000,
		DatabasePath:       "./creatives.db",
		AccessTokenMinutes: 30,
		AppEnv:             "development",
		AllowedOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
		LogLevel:           "info",
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.JWTSecret == "" {
		if cfg.Production() {
			return nil, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = "dev-secret-change-me"
	}
	if cfg.AccessTokenMinutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", cfg.AccessTokenMinutes)
	}
	cfg.AccessTokenTTL = time.Duration(cfg.AccessTokenMinutes) * time.Minute
	return cfg, nil
}

// ClientConfig holds the command line client configuration.
type ClientConfig struct {
	APIURL          string        `yaml:"api_url" env:"CREATIVES_API_URL"`
	StatePath       string        `yaml:"state_path" env:"CREATIVES_STATE"`
	ResolveTimeout  time.Duration `yaml:"resolve_timeout" env:"CREATIVES_RESOLVE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"CREATIVES_REQUEST_TIMEOUT"`
	RefreshSchedule string        `yaml:"refresh_schedule" env:"CREATIVES_REFRESH_SCHEDULE"`
	LogLevel        string        `yaml:"log_level" env:"CREATIVES_LOG_LEVEL"`
}

// DefaultClientConfig returns the configuration used when nothing overrides it.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		APIURL:          "http://localhost:8000",
		StatePath:       filepath.Join(homeDir(), ".creatives", "state.db"),
		ResolveTimeout:  10 * time.Second,
		RequestTimeout:  30 * time.Second,
		RefreshSchedule: "@every 5m",
		LogLevel:        "warn",
	}
}

// LoadClient layers defaults, the YAML config file and the environment.
// path may be empty, in which case $CREATIVES_CONFIG or
// ~/.creatives/config.yaml is used if it exists.
func LoadClient(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	explicit := path != ""
	if !explicit {
		path = getEnv("CREATIVES_CONFIG", filepath.Join(homeDir(), ".creatives", "config.yaml"))
		explicit = os.Getenv("CREATIVES_CONFIG") != ""
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// optional
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.APIURL == "" {
		return nil, errors.New("api_url must not be empty")
	}
	if cfg.ResolveTimeout <= 0 {
		return nil, fmt.Errorf("resolve_timeout must be positive, got %s", cfg.ResolveTimeout)
	}
	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
