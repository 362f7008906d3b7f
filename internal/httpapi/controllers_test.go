package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/authgate/internal/auth"
	"github.com/dropDatabas3/authgate/internal/security/password"
	"github.com/dropDatabas3/authgate/internal/store/memory"
	"github.com/dropDatabas3/authgate/internal/token"
)

const testUserAgent = "test-agent/1.0"

func testHasher() password.Hasher {
	return password.Hasher{Params: password.Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}}
}

func newTokenRouter(t *testing.T) (http.Handler, *auth.TokenStrategy) {
	t.Helper()
	codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	store := memory.New()
	hasher := testHasher()
	strategy := auth.NewTokenStrategy(codec, store, hasher, auth.TokenConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	return NewRouter(auth.NewRegistrar(store, hasher), strategy, RouterConfig{}), strategy
}

func newSessionRouter(t *testing.T) (http.Handler, *auth.SessionStrategy) {
	t.Helper()
	store := memory.New()
	hasher := testHasher()
	strategy := auth.NewSessionStrategy(store, hasher, auth.SessionConfig{TTL: time.Hour})
	return NewRouter(auth.NewRegistrar(store, hasher), strategy, RouterConfig{}), strategy
}

func doJSON(h http.Handler, method, path string, body any, mod func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("User-Agent", testUserAgent)
	if mod != nil {
		mod(r)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func registerOK(t *testing.T, h http.Handler) {
	t.Helper()
	w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestRegisterEndpoint(t *testing.T) {
	h, _ := newTokenRouter(t)

	t.Run("created", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
		resp := decodeBody[RegisterResponse](t, w)
		require.Equal(t, "Johny", resp.Username)
	})

	t.Run("duplicate", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
		require.Equal(t, http.StatusConflict, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "USER_EXISTS", resp.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "Johnny", Password: "johnny"}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "INVALID_PASSWORD", resp.Code)
	})

	t.Run("bad username", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "_J", Password: "Johny1234!"}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "INVALID_USERNAME", resp.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/register", CredentialsRequest{Username: "Johny"}, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "MISSING_FIELDS", resp.Code)
	})

	t.Run("invalid json", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/v1/auth/register", bytes.NewBufferString("{"))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "INVALID_JSON", resp.Code)
	})
}

func TestTokenLoginEndpoint(t *testing.T) {
	h, _ := newTokenRouter(t)
	registerOK(t, h)

	t.Run("success returns pair", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[LoginResponse](t, w)
		require.Equal(t, "Bearer", resp.TokenType)
		require.NotEmpty(t, resp.AccessToken)
		require.NotEmpty(t, resp.RefreshToken)
		require.Positive(t, resp.ExpiresIn)
	})

	t.Run("wrong password and unknown user answer identically", func(t *testing.T) {
		wrong := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Johny", Password: "Wrong1234!"}, nil)
		unknown := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Ghost", Password: "Johny1234!"}, nil)
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.JSONEq(t, wrong.Body.String(), unknown.Body.String())
	})
}

func TestMeWithToken(t *testing.T) {
	h, _ := newTokenRouter(t)
	registerOK(t, h)
	w := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pair := decodeBody[LoginResponse](t, w)

	t.Run("valid token", func(t *testing.T) {
		w := doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		})
		require.Equal(t, http.StatusOK, w.Code)
		me := decodeBody[MeResponse](t, w)
		require.Equal(t, "Johny", me.Username)
	})

	t.Run("no evidence is forbidden", func(t *testing.T) {
		w := doJSON(h, "GET", "/v1/me", nil, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "AUTH_REQUIRED", resp.Code)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		w := doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not.a.token")
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "TOKEN_INVALID", resp.Code)
	})

	t.Run("expired token is distinguishable", func(t *testing.T) {
		codec, err := token.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		expired, err := codec.Mint("Johny", time.Minute, time.Now().Add(-time.Hour))
		require.NoError(t, err)

		w := doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+expired)
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decodeBody[errorResponse](t, w)
		require.Equal(t, "TOKEN_EXPIRED", resp.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	h, _ := newTokenRouter(t)
	registerOK(t, h)
	w := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
	first := decodeBody[LoginResponse](t, w)

	w = doJSON(h, "POST", "/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rotated := decodeBody[RefreshResponse](t, w)
	require.NotEqual(t, first.RefreshToken, rotated.RefreshToken)

	// The rotated-out token is dead.
	w = doJSON(h, "POST", "/v1/auth/refresh", RefreshRequest{RefreshToken: first.RefreshToken}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeBody[errorResponse](t, w)
	require.Equal(t, "REFRESH_REJECTED", resp.Code)
}

func TestSessionFlow(t *testing.T) {
	h, strategy := newSessionRouter(t)
	registerOK(t, h)

	w := doJSON(h, "POST", "/v1/auth/login", CredentialsRequest{Username: "Johny", Password: "Johny1234!"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == strategy.CookieName() {
			session = c
		}
	}
	require.NotNil(t, session, "login must set the session cookie")
	require.True(t, session.HttpOnly)
	require.NotEmpty(t, session.Value)

	t.Run("me with cookie", func(t *testing.T) {
		w := doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.AddCookie(session)
		})
		require.Equal(t, http.StatusOK, w.Code)
		me := decodeBody[MeResponse](t, w)
		require.Equal(t, "Johny", me.Username)
	})

	t.Run("forged cookie is forbidden", func(t *testing.T) {
		w := doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: strategy.CookieName(), Value: "forged"})
		})
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("logout kills the session", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/logout", nil, func(r *http.Request) {
			r.AddCookie(session)
		})
		require.Equal(t, http.StatusNoContent, w.Code)

		// The deletion cookie is sent back expired.
		var deleted *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == strategy.CookieName() {
				deleted = c
			}
		}
		require.NotNil(t, deleted)
		require.Negative(t, deleted.MaxAge)

		w = doJSON(h, "GET", "/v1/me", nil, func(r *http.Request) {
			r.AddCookie(session)
		})
		require.Equal(t, http.StatusForbidden, w.Code)

		// Logout again with the dead cookie still succeeds.
		w = doJSON(h, "POST", "/v1/auth/logout", nil, func(r *http.Request) {
			r.AddCookie(session)
		})
		require.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("no refresh endpoint for sessions", func(t *testing.T) {
		w := doJSON(h, "POST", "/v1/auth/refresh", RefreshRequest{RefreshToken: "x"}, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	h, _ := newTokenRouter(t)
	w := doJSON(h, "GET", "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
