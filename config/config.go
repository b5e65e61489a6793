package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/hue-gateway/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Google        GoogleConfig
	Auth          AuthConfig
	Bridge        BridgeConfig
	Observability ObservabilityConfig
	// PublicURL is the externally reachable base URL, advertised in the
	// protected resource metadata
	PublicURL   string
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// GoogleConfig holds identity provider settings used for token verification
type GoogleConfig struct {
	ClientID string
	Issuer   string
	JWKSURL  string
	// JWKSTimeout bounds a single key set fetch
	JWKSTimeout time.Duration
	// JWKSCacheTTL of zero keeps a fetched key set until an unknown kid shows up
	JWKSCacheTTL   time.Duration
	JWKSMinRefresh time.Duration
	TokenLeeway    time.Duration
}

// AuthConfig holds authorization policy
type AuthConfig struct {
	AllowedEmails []string
	// Enforce rejects requests without credentials. Disabling it is a
	// development convenience and refused in production.
	Enforce  bool
	DevEmail string
}

// BridgeConfig holds lighting bridge connection settings
type BridgeConfig struct {
	Address    string // HUE_BRIDGE_IP: host, host:port or full URL
	Username   string
	Timeout    time.Duration
	MaxRetries int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// MockBridgeConfig configures the standalone bridge simulator
type MockBridgeConfig struct {
	Addr      string
	LogLevel  string
	LogFormat string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		PublicURL:   strings.TrimRight(getEnv("TAILSCALE_FUNNEL_URL", "http://localhost:8000"), "/"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Google: GoogleConfig{
			ClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
			Issuer:         getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
			JWKSURL:        getEnv("GOOGLE_JWKS_URL", "https://www.googleapis.com/oauth2/v3/certs"),
			JWKSTimeout:    getEnvAsDuration("GOOGLE_JWKS_TIMEOUT", 5*time.Second),
			JWKSCacheTTL:   getEnvAsDuration("GOOGLE_JWKS_CACHE_TTL", 0),
			JWKSMinRefresh: getEnvAsDuration("GOOGLE_JWKS_MIN_REFRESH_INTERVAL", 5*time.Second),
			TokenLeeway:    getEnvAsDuration("GOOGLE_TOKEN_LEEWAY", 0),
		},
		Auth: AuthConfig{
			AllowedEmails: getEnvAsList("ALLOWED_EMAILS"),
			Enforce:       getEnvAsBool("AUTH_ENFORCE", true),
			DevEmail:      getEnv("AUTH_DEV_EMAIL", "dev@example.com"),
		},
		Bridge: BridgeConfig{
			Address:    getEnv("HUE_BRIDGE_IP", ""),
			Username:   getEnv("HUE_USERNAME", ""),
			Timeout:    getEnvAsDuration("HUE_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvAsInt("HUE_MAX_RETRIES", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// NewMockBridge loads the bridge simulator configuration
func NewMockBridge() *MockBridgeConfig {
	_ = godotenv.Load(".env")

	return &MockBridgeConfig{
		Addr:      getEnv("MOCK_BRIDGE_ADDR", ":5000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Google.ClientID == "" {
		return fmt.Errorf("google client ID is required: set GOOGLE_CLIENT_ID")
	}
	if c.Google.Issuer == "" {
		return fmt.Errorf("google issuer is required")
	}

	if len(c.Auth.AllowedEmails) == 0 {
		return fmt.Errorf("allow-list is empty: set ALLOWED_EMAILS")
	}
	for _, email := range c.Auth.AllowedEmails {
		if err := utils.ValidateEmail(email); err != nil {
			return fmt.Errorf("ALLOWED_EMAILS: %w", err)
		}
	}
	if !c.Auth.Enforce && c.IsProduction() {
		return fmt.Errorf("AUTH_ENFORCE=false is not allowed in production")
	}

	if c.Bridge.Address == "" {
		return fmt.Errorf("bridge address is required: set HUE_BRIDGE_IP")
	}
	if c.Bridge.Username == "" {
		return fmt.Errorf("bridge username is required: set HUE_USERNAME")
	}
	if _, err := c.Bridge.BaseURL(); err != nil {
		return err
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BaseURL returns the bridge root URL. A bare host or host:port gets an
// http scheme.
func (c *BridgeConfig) BaseURL() (string, error) {
	raw := c.Address
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid bridge address %q", c.Address)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, trimming entries and dropping empties
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
