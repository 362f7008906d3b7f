package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestSecureTransportRedirect(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("plain http is redirected before anything else runs", func(t *testing.T) {
		h := Chain(ok, SecureTransport(true))
		r := httptest.NewRequest("GET", "http://api.example.com/v1/me?x=1", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		require.Equal(t, http.StatusMovedPermanently, w.Code)
		require.Equal(t, "https://api.example.com/v1/me?x=1", w.Header().Get("Location"))
	})

	t.Run("tls passes through", func(t *testing.T) {
		h := Chain(ok, SecureTransport(true))
		r := httptest.NewRequest("GET", "https://api.example.com/v1/me", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("forwarded proto is honored", func(t *testing.T) {
		h := Chain(ok, SecureTransport(true))
		r := httptest.NewRequest("GET", "http://api.example.com/v1/me", nil)
		r.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("disabled is a no-op", func(t *testing.T) {
		h := Chain(ok, SecureTransport(false))
		r := httptest.NewRequest("GET", "http://api.example.com/v1/me", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}), WithRequestID())

	t.Run("generated when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		require.NotEmpty(t, seen)
		require.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("client id propagated", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r.Header.Set("X-Request-ID", "req-42")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		require.Equal(t, "req-42", seen)
		require.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})
}

func TestRoutePatternLabel(t *testing.T) {
	var seen string
	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			seen = routePattern(r)
		})
	}

	r := chi.NewRouter()
	r.Use(capture)
	r.Get("/v1/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("matched routes report the pattern, not the raw path", func(t *testing.T) {
		for _, path := range []string{"/v1/users/1", "/v1/users/2", "/v1/users/abc"} {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
			require.Equal(t, "/v1/users/{id}", seen)
		}
	})

	t.Run("unmatched paths collapse into one label value", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/no/such/route", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "unmatched", seen)
	})
}

func TestRecoverMiddleware(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), WithRecover())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
