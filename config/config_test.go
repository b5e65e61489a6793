package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseEnv is the minimum environment a gateway needs to start
func baseEnv(extra map[string]string) map[string]string {
	env := map[string]string{
		"GOOGLE_CLIENT_ID": "client.apps.googleusercontent.com",
		"ALLOWED_EMAILS":   "user@example.com",
		"HUE_BRIDGE_IP":    "192.168.1.20",
		"HUE_USERNAME":     "bridge-user",
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		errMsg  string
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: baseEnv(nil),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, "https://accounts.google.com", cfg.Google.Issuer)
				assert.Equal(t, "https://www.googleapis.com/oauth2/v3/certs", cfg.Google.JWKSURL)
				assert.Equal(t, 5*time.Second, cfg.Google.JWKSTimeout)
				assert.Equal(t, time.Duration(0), cfg.Google.JWKSCacheTTL)
				assert.Equal(t, 5*time.Second, cfg.Google.JWKSMinRefresh)
				assert.Equal(t, time.Duration(0), cfg.Google.TokenLeeway)
				assert.True(t, cfg.Auth.Enforce)
				assert.Equal(t, "dev@example.com", cfg.Auth.DevEmail)
				assert.Equal(t, 10*time.Second, cfg.Bridge.Timeout)
				assert.Equal(t, 2, cfg.Bridge.MaxRetries)
				assert.Equal(t, "http://localhost:8000", cfg.PublicURL)
				assert.True(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "allow-list is trimmed and empties dropped",
			envVars: baseEnv(map[string]string{
				"ALLOWED_EMAILS": " user@example.com , ,admin@example.com,",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"user@example.com", "admin@example.com"}, cfg.Auth.AllowedEmails)
			},
		},
		{
			name: "google overrides",
			envVars: baseEnv(map[string]string{
				"GOOGLE_JWKS_URL":                  "http://localhost:9999/certs",
				"GOOGLE_JWKS_TIMEOUT":              "2s",
				"GOOGLE_JWKS_CACHE_TTL":            "1h",
				"GOOGLE_JWKS_MIN_REFRESH_INTERVAL": "30s",
				"GOOGLE_TOKEN_LEEWAY":              "10s",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "http://localhost:9999/certs", cfg.Google.JWKSURL)
				assert.Equal(t, 2*time.Second, cfg.Google.JWKSTimeout)
				assert.Equal(t, time.Hour, cfg.Google.JWKSCacheTTL)
				assert.Equal(t, 30*time.Second, cfg.Google.JWKSMinRefresh)
				assert.Equal(t, 10*time.Second, cfg.Google.TokenLeeway)
			},
		},
		{
			name: "fail-open allowed in development",
			envVars: baseEnv(map[string]string{
				"AUTH_ENFORCE":   "false",
				"AUTH_DEV_EMAIL": "me@home.lan",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.False(t, cfg.Auth.Enforce)
				assert.Equal(t, "me@home.lan", cfg.Auth.DevEmail)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: baseEnv(map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "SERVER_PORT env var when PORT not set",
			envVars: baseEnv(map[string]string{
				"SERVER_PORT": "9000",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
			},
		},
		{
			name: "public url trailing slash is trimmed",
			envVars: baseEnv(map[string]string{
				"TAILSCALE_FUNNEL_URL": "https://lights.tail1234.ts.net/",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://lights.tail1234.ts.net", cfg.PublicURL)
			},
		},
		{
			name:    "missing allow-list",
			envVars: baseEnv(map[string]string{"ALLOWED_EMAILS": " , "}),
			wantErr: true,
			errMsg:  "ALLOWED_EMAILS",
		},
		{
			name:    "allow-list accepts apostrophes in the local part",
			envVars: baseEnv(map[string]string{"ALLOWED_EMAILS": "o'brien@example.com"}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"o'brien@example.com"}, cfg.Auth.AllowedEmails)
			},
		},
		{
			name:    "malformed allow-list entry",
			envVars: baseEnv(map[string]string{"ALLOWED_EMAILS": "user@example.com,not-an-email"}),
			wantErr: true,
			errMsg:  "not-an-email",
		},
		{
			name:    "missing client id",
			envVars: baseEnv(map[string]string{"GOOGLE_CLIENT_ID": ""}),
			wantErr: true,
			errMsg:  "GOOGLE_CLIENT_ID",
		},
		{
			name:    "missing bridge address",
			envVars: baseEnv(map[string]string{"HUE_BRIDGE_IP": ""}),
			wantErr: true,
			errMsg:  "HUE_BRIDGE_IP",
		},
		{
			name:    "missing bridge username",
			envVars: baseEnv(map[string]string{"HUE_USERNAME": ""}),
			wantErr: true,
			errMsg:  "HUE_USERNAME",
		},
		{
			name: "fail-open refused in production",
			envVars: baseEnv(map[string]string{
				"ENVIRONMENT":  "production",
				"AUTH_ENFORCE": "false",
			}),
			wantErr: true,
			errMsg:  "AUTH_ENFORCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			for k, v := range tt.envVars {
				if v != "" {
					os.Setenv(k, v)
				}
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestNewMockBridge(t *testing.T) {
	os.Clearenv()
	cfg := NewMockBridge()
	assert.Equal(t, ":5000", cfg.Addr)

	os.Setenv("MOCK_BRIDGE_ADDR", "127.0.0.1:5055")
	cfg = NewMockBridge()
	assert.Equal(t, "127.0.0.1:5055", cfg.Addr)
}

func TestBridgeConfig_BaseURL(t *testing.T) {
	tests := []struct {
		address string
		want    string
		wantErr bool
	}{
		{address: "192.168.1.20", want: "http://192.168.1.20"},
		{address: "localhost:5000", want: "http://localhost:5000"},
		{address: "https://bridge.lan/", want: "https://bridge.lan"},
		{address: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			cfg := BridgeConfig{Address: tt.address}
			got, err := cfg.BaseURL()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 8000,
	}

	assert.Equal(t, "0.0.0.0:8000", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "TEST_INT", "42", 10, 42},
		{"empty value", "TEST_INT", "", 10, 10},
		{"invalid int", "TEST_INT", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsInt(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "TEST_BOOL", "true", false, true},
		{"false", "TEST_BOOL", "false", true, false},
		{"empty value", "TEST_BOOL", "", true, true},
		{"invalid bool", "TEST_BOOL", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsBool(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Nil(t, getEnvAsList("TEST_LIST"))

	os.Setenv("TEST_LIST", "a, b ,,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST"))
}
