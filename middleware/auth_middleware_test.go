package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/hue-gateway/googleauth"
	"github.com/upb/hue-gateway/googleauth/googleauthtest"
	"go.uber.org/zap"
)

// MockAuthenticator records calls and delegates to a real gate
type MockAuthenticator struct {
	mock.Mock
	gate *googleauth.Gate
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, h http.Header) googleauth.Decision {
	m.Called(ctx, h)
	return m.gate.Authenticate(ctx, h)
}

type fixture struct {
	key   googleauthtest.Key
	srv   *googleauthtest.Server
	authn *MockAuthenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key := googleauthtest.NewKey(t, "kid-1")
	srv := googleauthtest.NewServer(t, key)
	cache := googleauth.NewKeyCache(googleauth.KeyCacheConfig{URL: srv.URL, HTTPTimeout: 2 * time.Second})
	verifier := googleauth.NewVerifier(cache, googleauth.VerifierConfig{ClientID: googleauthtest.ClientID})
	allow, err := googleauth.NewAllowList([]string{"user@example.com"})
	require.NoError(t, err)

	authn := &MockAuthenticator{gate: googleauth.NewGate(verifier, allow)}
	authn.On("Authenticate", mock.Anything, mock.Anything)
	return &fixture{key: key, srv: srv, authn: authn}
}

func (f *fixture) token(t *testing.T, email string) string {
	return googleauthtest.Mint(t, f.key, googleauthtest.Claims(email))
}

func decodeRejection(t *testing.T, w *httptest.ResponseRecorder) Rejection {
	t.Helper()
	var rej Rejection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rej))
	return rej
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("admitted identity reaches the handler once", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		calls := 0
		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			p := GetPrincipalFromContext(r.Context())
			require.NotNil(t, p)
			assert.Equal(t, "user@example.com", p.Email)
			assert.Equal(t, "1098765432101234567890", p.Subject)
			assert.False(t, p.Anonymous)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, "user@example.com"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		f.authn.AssertNumberOfCalls(t, "Authenticate", 1)
	})

	t.Run("unlisted email is forbidden", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		req := httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, "other@example.com"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		rej := decodeRejection(t, w)
		assert.Equal(t, ErrForbidden, rej.Error)
		assert.NotEmpty(t, rej.Details)
	})

	t.Run("missing header is rejected when enforcing", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
		rej := decodeRejection(t, w)
		assert.Equal(t, ErrAuthenticationFailed, rej.Error)
		assert.Equal(t, string(googleauth.KindMissingCredential), rej.Details)
	})

	t.Run("expired token names the claim", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		claims := googleauthtest.Claims("user@example.com")
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		token := googleauthtest.Mint(t, f.key, claims)

		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))
		req := httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		rej := decodeRejection(t, w)
		assert.Equal(t, ErrAuthenticationFailed, rej.Error)
		assert.Equal(t, "claim_invalid: exp", rej.Details)
	})

	t.Run("jwks outage is an authentication failure", func(t *testing.T) {
		f := newFixture(t)
		f.srv.Fail(http.StatusServiceUnavailable, []byte(`down`))
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))
		req := httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil)
		req.Header.Set("Authorization", "Bearer "+f.token(t, "user@example.com"))
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(googleauth.KindUpstreamUnavailable), decodeRejection(t, w).Details)
	})
}

func TestRequireAuth_FailOpen(t *testing.T) {
	logger := zap.NewNop()

	t.Run("absent header runs as development principal", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: false, DevEmail: "dev@home.lan"}, logger)

		calls := 0
		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			p := GetPrincipalFromContext(r.Context())
			require.NotNil(t, p)
			assert.Equal(t, "dev@home.lan", p.Email)
			assert.Equal(t, "dev", p.Subject)
			assert.True(t, p.Anonymous)
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, calls)
		f.authn.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("default development email", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: false}, logger)

		p, rej := m.Admit(context.Background(), http.Header{})
		require.Nil(t, rej)
		assert.Equal(t, "dev@example.com", p.Email)
	})

	t.Run("invalid header is rejected even when not enforcing", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: false}, logger)

		handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be called")
		}))
		req := httptest.NewRequest(http.MethodPost, "/tools/get_lights", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(googleauth.KindMalformedToken), decodeRejection(t, w).Details)
		f.authn.AssertNumberOfCalls(t, "Authenticate", 1)
	})

	t.Run("empty header is rejected even when not enforcing", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: false}, logger)

		p, rej := m.Admit(context.Background(), http.Header{"Authorization": {""}})
		assert.Nil(t, p)
		require.NotNil(t, rej)
		assert.Equal(t, http.StatusUnauthorized, rej.Status)
		assert.Equal(t, string(googleauth.KindMissingCredential), rej.Details)
		f.authn.AssertNumberOfCalls(t, "Authenticate", 1)
	})

	t.Run("non-bearer scheme is rejected even when not enforcing", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: false}, logger)

		h := http.Header{}
		h.Set("Authorization", "Basic xyz")
		p, rej := m.Admit(context.Background(), h)
		assert.Nil(t, p)
		require.NotNil(t, rej)
		assert.Equal(t, http.StatusUnauthorized, rej.Status)
	})
}

func TestCall(t *testing.T) {
	logger := zap.NewNop()

	t.Run("operation runs exactly once with the principal", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		calls := 0
		result, rej, err := m.Call(context.Background(), googleauthtest.AuthHeader(f.token(t, "user@example.com")),
			func(ctx context.Context, p *Principal) (any, error) {
				calls++
				assert.Equal(t, p, GetPrincipalFromContext(ctx))
				return map[string]string{"email": p.Email}, nil
			})

		require.Nil(t, rej)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, map[string]string{"email": "user@example.com"}, result)
	})

	t.Run("rejection never runs the operation", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)

		result, rej, err := m.Call(context.Background(), googleauthtest.AuthHeader(f.token(t, "other@example.com")),
			func(ctx context.Context, p *Principal) (any, error) {
				t.Fatal("operation should not be called")
				return nil, nil
			})

		assert.Nil(t, result)
		assert.NoError(t, err)
		require.NotNil(t, rej)
		assert.Equal(t, http.StatusForbidden, rej.Status)
		assert.Equal(t, ErrForbidden, rej.Error)
	})

	t.Run("operation error is returned unchanged", func(t *testing.T) {
		f := newFixture(t)
		m := NewAuthMiddleware(f.authn, AuthConfig{Enforce: true}, logger)
		boom := errors.New("bridge unreachable")

		_, rej, err := m.Call(context.Background(), googleauthtest.AuthHeader(f.token(t, "user@example.com")),
			func(ctx context.Context, p *Principal) (any, error) {
				return nil, boom
			})

		assert.Nil(t, rej)
		assert.ErrorIs(t, err, boom)
	})
}

func TestRequestIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), chimw.RequestIDKey, "req-123")
	assert.Equal(t, "req-123", GetRequestIDFromContext(ctx))
	assert.Equal(t, "", GetRequestIDFromContext(context.Background()))
}
