package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/hue-gateway/googleauth"
	"github.com/upb/hue-gateway/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// KeySource is the signing key cache as seen by the readiness check
type KeySource interface {
	Get(ctx context.Context) (*googleauth.KeySet, error)
}

// BridgePinger checks bridge reachability
type BridgePinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	keys    KeySource
	bridge  BridgePinger
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Nil dependencies are skipped
// by the readiness check.
func NewHealthHandler(keys KeySource, bridge BridgePinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		keys:    keys,
		bridge:  bridge,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only; always 200 while the process serves requests
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
// Warms the signing key cache and pings the bridge
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.keys != nil {
		if set, err := h.keys.Get(ctx); err != nil {
			h.logger.Warn("signing key check failed", zap.Error(err))
			checks["jwks"] = "unhealthy"
			allHealthy = false
		} else if set.Len() == 0 {
			checks["jwks"] = "empty"
			allHealthy = false
		} else {
			checks["jwks"] = "healthy"
		}
	}

	if h.bridge != nil {
		if err := h.bridge.Ping(ctx); err != nil {
			h.logger.Warn("bridge health check failed", zap.Error(err))
			checks["bridge"] = "unhealthy"
			allHealthy = false
		} else {
			checks["bridge"] = "healthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
