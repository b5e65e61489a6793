// Package googleauthtest provides a local stand-in for Google's identity
// provider: an RSA keypair, a JWKS endpoint backed by httptest and helpers to
// mint signed ID tokens.
package googleauthtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Issuer   = "https://accounts.google.com"
	ClientID = "test-client.apps.googleusercontent.com"
)

// Key is a signing key published (or not) by the test issuer
type Key struct {
	Kid     string
	Private *rsa.PrivateKey
}

// Server serves a JWKS document and mints tokens
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	published []Key
	status    int
	body      []byte
	delay     time.Duration

	fetches atomic.Int64
}

// NewKey generates a 2048-bit RSA key
func NewKey(t testing.TB, kid string) Key {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return Key{Kid: kid, Private: priv}
}

// NewServer starts a JWKS server publishing keys. It is closed on test cleanup.
func NewServer(t testing.TB, keys ...Key) *Server {
	t.Helper()
	s := &Server{published: keys, status: http.StatusOK}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveJWKS))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) serveJWKS(w http.ResponseWriter, r *http.Request) {
	s.fetches.Add(1)

	s.mu.Lock()
	status, body, delay := s.status, s.body, s.delay
	if body == nil {
		body = jwksDocument(s.published)
	}
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Fetches returns how many times the JWKS endpoint was hit
func (s *Server) Fetches() int {
	return int(s.fetches.Load())
}

// Publish replaces the published keys
func (s *Server) Publish(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = keys
}

// Fail makes the endpoint answer with status and body. A nil body restores
// the JWKS document; status 200 with nil body restores normal behaviour.
func (s *Server) Fail(status int, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.body = body
}

// SetDelay delays every response
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// JWK returns the public JWK fields for key
func JWK(key Key) map[string]string {
	pub := key.Private.PublicKey
	return map[string]string{
		"kid": key.Kid,
		"kty": "RSA",
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func jwksDocument(keys []Key) []byte {
	doc := struct {
		Keys []map[string]string `json:"keys"`
	}{Keys: make([]map[string]string, 0, len(keys))}
	for _, k := range keys {
		doc.Keys = append(doc.Keys, JWK(k))
	}
	b, _ := json.Marshal(doc)
	return b
}

// Claims returns a valid Google-style claim set for email
func Claims(email string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            Issuer,
		"aud":            ClientID,
		"sub":            "1098765432101234567890",
		"email":          email,
		"email_verified": true,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

// Mint signs claims with key using RS256
func Mint(t testing.TB, key Key, claims jwt.MapClaims) string {
	t.Helper()
	return MintWithMethod(t, key, jwt.SigningMethodRS256, claims)
}

// MintWithMethod signs claims with an arbitrary RSA signing method
func MintWithMethod(t testing.TB, key Key, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	if key.Kid != "" {
		token.Header["kid"] = key.Kid
	}
	signed, err := token.SignedString(key.Private)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// AuthHeader returns an http.Header carrying token as a bearer credential
func AuthHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
