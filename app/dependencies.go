package app

import (
	"context"
	"fmt"

	"github.com/upb/hue-gateway/config"
	"github.com/upb/hue-gateway/googleauth"
	"github.com/upb/hue-gateway/hue"
	"github.com/upb/hue-gateway/middleware"
	"github.com/upb/hue-gateway/tools"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Auth
	KeyCache       *googleauth.KeyCache
	Verifier       *googleauth.Verifier
	AllowList      *googleauth.AllowList
	Gate           *googleauth.Gate
	AuthMiddleware *middleware.AuthMiddleware

	// Lighting
	Bridge *hue.Client
	Tools  *tools.Registry
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.initBridge(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize bridge client: %w", err)
	}

	if err := deps.initTools(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tools: %w", err)
	}

	// a cold cache is fetched on the first request anyway
	if _, err := deps.KeyCache.Get(ctx); err != nil {
		logger.Warn("initial signing key fetch failed", zap.Error(err))
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	allow, err := googleauth.NewAllowList(cfg.Auth.AllowedEmails)
	if err != nil {
		return err
	}
	d.AllowList = allow

	d.KeyCache = googleauth.NewKeyCache(googleauth.KeyCacheConfig{
		URL:                cfg.Google.JWKSURL,
		HTTPTimeout:        cfg.Google.JWKSTimeout,
		TTL:                cfg.Google.JWKSCacheTTL,
		MinRefreshInterval: cfg.Google.JWKSMinRefresh,
		Logger:             d.Logger.Named("jwks"),
	})
	d.Verifier = googleauth.NewVerifier(d.KeyCache, googleauth.VerifierConfig{
		ClientID: cfg.Google.ClientID,
		Issuer:   cfg.Google.Issuer,
		Leeway:   cfg.Google.TokenLeeway,
	})
	d.Gate = googleauth.NewGate(d.Verifier, d.AllowList)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Gate, middleware.AuthConfig{
		Enforce:  cfg.Auth.Enforce,
		DevEmail: cfg.Auth.DevEmail,
	}, d.Logger.Named("auth"))

	if !cfg.Auth.Enforce {
		d.Logger.Warn("auth enforcement disabled; requests without credentials run as the development identity",
			zap.String("dev_email", cfg.Auth.DevEmail))
	}
	d.Logger.Info("auth initialized",
		zap.String("issuer", cfg.Google.Issuer),
		zap.Int("allowed_emails", allow.Len()))
	return nil
}

func (d *Dependencies) initBridge(cfg *config.Config) error {
	baseURL, err := cfg.Bridge.BaseURL()
	if err != nil {
		return err
	}
	d.Bridge = hue.NewClient(hue.ClientConfig{
		BaseURL:    baseURL,
		Username:   cfg.Bridge.Username,
		Timeout:    cfg.Bridge.Timeout,
		MaxRetries: cfg.Bridge.MaxRetries,
		Logger:     d.Logger.Named("bridge"),
	})
	d.Logger.Info("bridge client initialized", zap.String("bridge", baseURL))
	return nil
}

func (d *Dependencies) initTools(cfg *config.Config) error {
	registry := tools.NewRegistry(d.Logger.Named("tools"))
	err := tools.RegisterLightingTools(registry, d.Bridge, tools.StatusInfo{
		BridgeAddress:      cfg.Bridge.Address,
		UsernameConfigured: cfg.Bridge.Username != "",
		AuthRequired:       cfg.Auth.Enforce,
		AuthProvider:       "google",
	})
	if err != nil {
		return err
	}
	d.Tools = registry
	d.Logger.Info("tools registered", zap.Int("count", registry.Count()))
	return nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
	return nil
}
