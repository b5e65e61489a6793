package googleauth

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

// JWKS represents the JSON Web Key Set document published by the provider
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a single RSA JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty,omitempty"`
	Alg string `json:"alg,omitempty"`
	Use string `json:"use,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

var bigThree = big.NewInt(3)

// ReconstructPublicKey converts a JWK into an RSA public key.
// Both n and e are base64url big-endian unsigned integers; padding is optional.
func ReconstructPublicKey(jwk JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "" && jwk.Kty != "RSA" {
		return nil, newAuthError(KindInvalidKeyMaterial, fmt.Sprintf("unsupported key type %q", jwk.Kty), nil)
	}

	n, err := decodeUnsigned(jwk.N)
	if err != nil {
		return nil, newAuthError(KindInvalidKeyMaterial, "failed to decode modulus", err)
	}
	e, err := decodeUnsigned(jwk.E)
	if err != nil {
		return nil, newAuthError(KindInvalidKeyMaterial, "failed to decode exponent", err)
	}

	if n.Cmp(bigThree) < 0 {
		return nil, newAuthError(KindInvalidKeyMaterial, "modulus too small", nil)
	}
	if e.Cmp(bigThree) < 0 || e.Cmp(n) >= 0 {
		return nil, newAuthError(KindInvalidKeyMaterial, "exponent out of range", nil)
	}
	if e.Bit(0) == 0 {
		return nil, newAuthError(KindInvalidKeyMaterial, "exponent must be odd", nil)
	}
	// rsa.PublicKey.E is an int
	if !e.IsInt64() || e.Int64() > int64(^uint32(0)>>1) {
		return nil, newAuthError(KindInvalidKeyMaterial, "exponent too large", nil)
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func decodeUnsigned(s string) (*big.Int, error) {
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, fmt.Errorf("empty value")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
