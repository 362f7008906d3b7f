package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/authgate/internal/auth"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/token"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares left to right: Chain(h, A, B) runs A -> B -> h,
// so A is the first to see the request and the last to see the response.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyPrincipal
)

// GetRequestID returns the request id injected by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(ctxKeyRequestID).(string)
	return rid
}

// GetPrincipal returns the principal injected by RequirePrincipal, or nil.
func GetPrincipal(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(ctxKeyPrincipal).(*auth.Principal)
	return p
}

// WithRequestID propagates the client's X-Request-ID or generates one, and
// exposes it on the response and in the context.
func WithRequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			ctx := context.WithValue(r.Context(), ctxKeyRequestID, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures status and byte count of the response.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.status = http.StatusOK
		s.wroteHeader = true
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithLogging logs every request with structured fields and injects a scoped
// logger into the context for the layers below.
func WithLogging() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLog := logger.L().With(
				logger.RequestID(GetRequestID(r.Context())),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
			)
			ctx := logger.ToContext(r.Context(), reqLog)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			dur := time.Since(start)
			switch {
			case rec.status >= 500:
				reqLog.Error("request failed",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			case rec.status >= 400:
				reqLog.Warn("request completed with client error",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			default:
				reqLog.Info("request completed",
					logger.Status(rec.status),
					logger.Bytes(rec.bytes),
					logger.DurationMs(dur.Milliseconds()),
				)
			}
		})
	}
}

// WithMetrics feeds the request latency histogram. Mounted inside the chi
// router (not on the outer chain) so the route pattern is available as the
// path label; raw URL paths would be unbounded cardinality.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.RequestDuration.
				WithLabelValues(r.Method, routePattern(r), strconv.Itoa(rec.status)).
				Observe(float64(time.Since(start).Milliseconds()))
		})
	}
}

// routePattern returns the matched chi pattern ("/v1/auth/login"); requests
// that matched nothing all collapse into one label value.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// WithRecover turns panics into a clean 500 instead of a dropped connection.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered", logger.Any("panic", rec))
					WriteError(w, ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecureTransport redirects plain-HTTP requests to their https equivalent
// with a permanent redirect. Runs before any authentication so credentials
// and tokens never transit an insecure channel further than this hop.
// Proxy-terminated TLS is honored via X-Forwarded-Proto.
func SecureTransport(enabled bool) Middleware {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requestIsSecure(r) {
				target := "https://" + r.Host + r.URL.RequestURI()
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// RequirePrincipal gates a handler behind authentication. Requests with no
// evidence at all get 403; requests whose evidence fails verification get
// 401, with expired and malformed kept distinguishable. Stale server-side
// sessions read as "no evidence" and also land on 403.
func RequirePrincipal(strategy auth.Strategy) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := strategy.ResolvePrincipal(r)
			switch {
			case errors.Is(err, token.ErrExpired):
				WriteError(w, ErrTokenExpired)
				return
			case errors.Is(err, token.ErrMalformed):
				WriteError(w, ErrTokenInvalid)
				return
			case err != nil:
				logger.From(r.Context()).Error("principal resolution failed", logger.Err(err))
				WriteError(w, ErrInternal.WithCause(err))
				return
			case p == nil:
				WriteError(w, ErrAuthRequired)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyPrincipal, p)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.Username(p.Username)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
