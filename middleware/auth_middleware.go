package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/upb/hue-gateway/googleauth"
	"github.com/upb/hue-gateway/internal/observability"
	"github.com/upb/hue-gateway/utils"
	"go.uber.org/zap"
)

const (
	// ErrAuthenticationFailed is the external category for every verification failure
	ErrAuthenticationFailed = "authentication_failed"
	// ErrForbidden is the external category for a verified identity outside the allow-list
	ErrForbidden = "forbidden"

	defaultDevEmail = "dev@example.com"
	devSubject      = "dev"
)

// Authenticator decides whether request headers carry an admissible identity
type Authenticator interface {
	Authenticate(ctx context.Context, h http.Header) googleauth.Decision
}

// Rejection is the structured payload returned instead of running a protected operation
type Rejection struct {
	Status  int    `json:"-"`
	Error   string `json:"error"`
	Details string `json:"details"`
}

// AuthConfig holds configuration for AuthMiddleware
type AuthConfig struct {
	// Enforce rejects requests without credentials. When false a request with
	// no Authorization header at all runs as the development principal.
	Enforce  bool
	DevEmail string
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	authenticator Authenticator
	enforce       bool
	devPrincipal  *Principal
	logger        *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authenticator Authenticator, cfg AuthConfig, logger *zap.Logger) *AuthMiddleware {
	if cfg.DevEmail == "" {
		cfg.DevEmail = defaultDevEmail
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		authenticator: authenticator,
		enforce:       cfg.Enforce,
		devPrincipal:  &Principal{Email: cfg.DevEmail, Subject: devSubject, Anonymous: true},
		logger:        logger,
	}
}

// Admit runs the shared decision path for one request
func (m *AuthMiddleware) Admit(ctx context.Context, h http.Header) (*Principal, *Rejection) {
	requestID := GetRequestIDFromContext(ctx)

	// only a missing header fails open; a present empty value is still checked
	if _, present := h[http.CanonicalHeaderKey("Authorization")]; !m.enforce && !present {
		m.logger.Warn("auth enforcement disabled, running as development principal",
			zap.String("request_id", requestID),
			zap.String("email", m.devPrincipal.Email))
		observability.AuthDecisionsTotal.WithLabelValues("bypassed", "").Inc()
		p := *m.devPrincipal
		return &p, nil
	}

	decision := m.authenticator.Authenticate(ctx, h)
	if !decision.Admitted() {
		authErr := decision.Err()
		m.logger.Warn("authentication rejected",
			zap.String("request_id", requestID),
			zap.String("kind", string(authErr.Kind)),
			zap.Error(authErr))
		observability.AuthDecisionsTotal.WithLabelValues("rejected", string(authErr.Kind)).Inc()
		return nil, rejectionFor(authErr)
	}

	claims := decision.Identity()
	m.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("sub", claims.Subject()),
		zap.String("email", claims.Email()))
	observability.AuthDecisionsTotal.WithLabelValues("admitted", "").Inc()

	return &Principal{Email: claims.Email(), Subject: claims.Subject()}, nil
}

// RequireAuth is a middleware that requires an admitted identity.
// The principal is available through GetPrincipalFromContext.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, rejection := m.Admit(r.Context(), r.Header)
		if rejection != nil {
			WriteRejection(w, rejection)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// Operation is a protected unit of work
type Operation func(ctx context.Context, principal *Principal) (any, error)

// Call runs op with the admitted principal, or returns the rejection without
// running it
func (m *AuthMiddleware) Call(ctx context.Context, h http.Header, op Operation) (any, *Rejection, error) {
	principal, rejection := m.Admit(ctx, h)
	if rejection != nil {
		return nil, rejection, nil
	}
	result, err := op(WithPrincipal(ctx, principal), principal)
	return result, nil, err
}

// WriteRejection writes the rejection payload with its status code
func WriteRejection(w http.ResponseWriter, rej *Rejection) {
	status := rej.Status
	if status == 0 {
		status = http.StatusUnauthorized
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	_ = utils.WriteJSON(w, status, rej)
}

func rejectionFor(err *googleauth.AuthError) *Rejection {
	if err.Kind == googleauth.KindForbidden {
		return &Rejection{
			Status:  http.StatusForbidden,
			Error:   ErrForbidden,
			Details: "email is not permitted",
		}
	}
	details := string(err.Kind)
	if err.Claim != "" {
		details = fmt.Sprintf("%s: %s", err.Kind, err.Claim)
	}
	return &Rejection{
		Status:  http.StatusUnauthorized,
		Error:   ErrAuthenticationFailed,
		Details: details,
	}
}
