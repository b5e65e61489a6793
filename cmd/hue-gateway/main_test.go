package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/hue-gateway/app"
	"github.com/upb/hue-gateway/config"
	"github.com/upb/hue-gateway/googleauth/googleauthtest"
	"github.com/upb/hue-gateway/mockbridge"
	"github.com/upb/hue-gateway/routes"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestInitLogger(t *testing.T) {
	t.Run("json logger", func(t *testing.T) {
		logger, err := initLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("console logger", func(t *testing.T) {
		logger, err := initLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"})
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		logger, err := initLogger(config.ObservabilityConfig{LogLevel: "invalid", LogFormat: "json"})
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func testDependencies(t *testing.T) *app.Dependencies {
	t.Helper()
	issuer := googleauthtest.NewServer(t, googleauthtest.NewKey(t, "kid-1"))
	bridge := httptest.NewServer(mockbridge.NewServer(mockbridge.NewStore(), nil).Routes())
	t.Cleanup(bridge.Close)

	cfg := &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		Google: config.GoogleConfig{
			ClientID: googleauthtest.ClientID,
			Issuer:   googleauthtest.Issuer,
			JWKSURL:  issuer.URL,
		},
		Auth:   config.AuthConfig{AllowedEmails: []string{"owner@example.com"}, Enforce: true},
		Bridge: config.BridgeConfig{Address: bridge.URL, Username: "dev", Timeout: time.Second},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	return deps
}

func TestServe_GracefulShutdown(t *testing.T) {
	deps := testDependencies(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{Handler: routes.SetupRoutes(deps), ReadHeaderTimeout: time.Second}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, ln, 2*time.Second, zap.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get("http://" + ln.Addr().String() + "/healthz")
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	ts := httptest.NewServer(routes.SetupRoutes(testDependencies(t)))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/tools/get_lights", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
