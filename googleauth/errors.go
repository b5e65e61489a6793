package googleauth

import (
	"errors"
	"fmt"
)

// ErrorKind identifies why an authentication attempt failed
type ErrorKind string

const (
	KindMissingCredential   ErrorKind = "missing_credential"
	KindMalformedToken      ErrorKind = "malformed_token"
	KindUnknownSigningKey   ErrorKind = "unknown_signing_key"
	KindInvalidKeyMaterial  ErrorKind = "invalid_key_material"
	KindSignatureInvalid    ErrorKind = "signature_invalid"
	KindClaimInvalid        ErrorKind = "claim_invalid"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindForbidden           ErrorKind = "forbidden"
)

// AuthError is the single error type produced by the key cache, the verifier
// and the authorization gate. Callers may collapse every kind into one
// external category, but the kind is kept for logging.
type AuthError struct {
	Kind   ErrorKind
	Claim  string // set for KindClaimInvalid
	Detail string
	Err    error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	msg := string(e.Kind)
	if e.Claim != "" {
		msg += " (" + e.Claim + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is matches on Kind so that errors.Is(err, ErrUnknownSigningKey) works for
// any AuthError of that kind.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newAuthError(kind ErrorKind, detail string, err error) *AuthError {
	return &AuthError{Kind: kind, Detail: detail, Err: err}
}

func claimError(claim string, err error) *AuthError {
	return &AuthError{
		Kind:   KindClaimInvalid,
		Claim:  claim,
		Detail: fmt.Sprintf("%s claim rejected", claim),
		Err:    err,
	}
}

// Sentinels for errors.Is
var (
	ErrMissingCredential   = &AuthError{Kind: KindMissingCredential}
	ErrMalformedToken      = &AuthError{Kind: KindMalformedToken}
	ErrUnknownSigningKey   = &AuthError{Kind: KindUnknownSigningKey}
	ErrInvalidKeyMaterial  = &AuthError{Kind: KindInvalidKeyMaterial}
	ErrSignatureInvalid    = &AuthError{Kind: KindSignatureInvalid}
	ErrClaimInvalid        = &AuthError{Kind: KindClaimInvalid}
	ErrUpstreamUnavailable = &AuthError{Kind: KindUpstreamUnavailable}
	ErrMalformedResponse   = &AuthError{Kind: KindMalformedResponse}
	ErrForbidden           = &AuthError{Kind: KindForbidden}
)

// KindOf returns the ErrorKind carried by err, or "" if err is not an AuthError
func KindOf(err error) ErrorKind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return ""
}

// ClaimOf returns the failing claim name for a KindClaimInvalid error
func ClaimOf(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Claim
	}
	return ""
}
