package googleauth

import (
	"context"
	"crypto/rsa"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultIssuer is the iss value of Google ID tokens
	DefaultIssuer = "https://accounts.google.com"

	bearerPrefix = "Bearer "
)

// KeyResolver resolves a key id to an RSA public key
type KeyResolver interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// VerifierConfig holds configuration for Verifier
type VerifierConfig struct {
	ClientID string
	Issuer   string
	Leeway   time.Duration
	Now      func() time.Time
}

// Verifier validates Google ID tokens. Only RS256 is accepted.
type Verifier struct {
	keys     KeyResolver
	clientID string
	issuer   string
	parser   *jwt.Parser
}

// NewVerifier creates a new Verifier
func NewVerifier(keys KeyResolver, cfg VerifierConfig) *Verifier {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(cfg.ClientID),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &Verifier{
		keys:     keys,
		clientID: cfg.ClientID,
		issuer:   cfg.Issuer,
		parser:   jwt.NewParser(opts...),
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header
func BearerToken(h http.Header) (string, error) {
	auth := h.Get("Authorization")
	if auth == "" {
		return "", newAuthError(KindMissingCredential, "missing Authorization header", nil)
	}
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", newAuthError(KindMissingCredential, "Authorization header is not a Bearer credential", nil)
	}
	token := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	if token == "" {
		return "", newAuthError(KindMissingCredential, "empty bearer token", nil)
	}
	return token, nil
}

// Verify extracts the bearer token from h and verifies it
func (v *Verifier) Verify(ctx context.Context, h http.Header) (*VerifiedClaims, error) {
	token, err := BearerToken(h)
	if err != nil {
		return nil, err
	}
	return v.VerifyToken(ctx, token)
}

// VerifyToken verifies a compact JWT and returns its claims
func (v *Verifier) VerifyToken(ctx context.Context, tokenString string) (*VerifiedClaims, error) {
	claims := &googleClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, newAuthError(KindMalformedToken, "kid header not found", nil)
		}
		return v.keys.Key(ctx, kid)
	})
	if err != nil {
		return nil, classifyParseError(err, claims)
	}
	if !token.Valid {
		return nil, newAuthError(KindSignatureInvalid, "token not valid", nil)
	}

	return newVerifiedClaims(claims), nil
}

func classifyParseError(err error, claims *googleClaims) error {
	// errors raised by the key lookup keep their own kind
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return newAuthError(KindMalformedToken, "token is not a well-formed JWT", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return newAuthError(KindSignatureInvalid, "signature verification failed", err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return claimError("aud", err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return claimError("iss", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return claimError("exp", err)
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return claimError("nbf", err)
	case errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return claimError("iat", err)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return claimError(missingClaim(claims), err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return claimError("claims", err)
	default:
		return newAuthError(KindMalformedToken, "token could not be parsed", err)
	}
}

func missingClaim(c *googleClaims) string {
	switch {
	case c.ExpiresAt == nil:
		return "exp"
	case len(c.Audience) == 0:
		return "aud"
	case c.Issuer == "":
		return "iss"
	default:
		return "claims"
	}
}
