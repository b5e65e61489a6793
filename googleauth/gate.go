package googleauth

import (
	"context"
	"errors"
	"net/http"
)

// Decision is the outcome of one authorization attempt: either an admitted
// identity or a rejection carrying the error kind.
type Decision struct {
	identity *VerifiedClaims
	err      *AuthError
}

// Admitted reports whether the identity was admitted
func (d Decision) Admitted() bool {
	return d.err == nil && d.identity != nil
}

// Identity returns the admitted claims, nil when rejected
func (d Decision) Identity() *VerifiedClaims {
	if !d.Admitted() {
		return nil
	}
	return d.identity
}

// Reason returns the rejection kind, "" when admitted
func (d Decision) Reason() ErrorKind {
	if d.Admitted() {
		return ""
	}
	return d.Err().Kind
}

// Err returns the rejection as an error, nil when admitted
func (d Decision) Err() *AuthError {
	if d.err != nil {
		return d.err
	}
	if d.identity == nil {
		return newAuthError(KindMissingCredential, "no identity", nil)
	}
	return nil
}

func admit(claims *VerifiedClaims) Decision {
	return Decision{identity: claims}
}

func reject(err error) Decision {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return Decision{err: authErr}
	}
	return Decision{err: newAuthError(KindSignatureInvalid, "verification failed", err)}
}

// Authorize admits claims iff their email is on the allow-list
func Authorize(claims *VerifiedClaims, allow *AllowList) Decision {
	if claims == nil {
		return reject(newAuthError(KindMissingCredential, "no verified identity", nil))
	}
	if !allow.Contains(claims.Email()) {
		return reject(newAuthError(KindForbidden, "email is not on the allow-list", nil))
	}
	return admit(claims)
}

// Gate verifies a request's bearer token and applies the allow-list
type Gate struct {
	verifier *Verifier
	allow    *AllowList
}

// NewGate creates a new Gate
func NewGate(verifier *Verifier, allow *AllowList) *Gate {
	return &Gate{verifier: verifier, allow: allow}
}

// Authenticate runs verification and authorization for the given headers
func (g *Gate) Authenticate(ctx context.Context, h http.Header) Decision {
	claims, err := g.verifier.Verify(ctx, h)
	if err != nil {
		return reject(err)
	}
	return Authorize(claims, g.allow)
}
