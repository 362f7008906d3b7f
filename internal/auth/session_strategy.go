package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/authgate/internal/security/token"
	"github.com/dropDatabas3/authgate/internal/store/core"
)

const (
	// DefaultSessionCookie is the cookie carrying the opaque session id.
	DefaultSessionCookie = "authgate_session"

	sessionIDBytes       = 32
	maxSessionIDAttempts = 5
)

// sessionStore is the slice of the storage port the session strategy needs.
type sessionStore interface {
	core.UserStore
	core.SessionStore
}

// SessionConfig holds the session strategy knobs.
type SessionConfig struct {
	TTL        time.Duration
	CookieName string
}

// SessionStrategy authenticates with a server-side session keyed by an
// opaque random id. The client holds only the id; the server stores a
// hash of it bound to the username, so a leaked store dump yields no
// usable session ids.
type SessionStrategy struct {
	store  sessionStore
	hasher Hasher
	cfg    SessionConfig
}

var _ Strategy = (*SessionStrategy)(nil)

func NewSessionStrategy(store sessionStore, hasher Hasher, cfg SessionConfig) *SessionStrategy {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultSessionCookie
	}
	return &SessionStrategy{store: store, hasher: hasher, cfg: cfg}
}

func (s *SessionStrategy) Name() string { return "session" }

// CookieName exposes the configured cookie so the HTTP layer can set and
// clear it.
func (s *SessionStrategy) CookieName() string { return s.cfg.CookieName }

// TTL exposes the configured session lifetime for cookie Max-Age.
func (s *SessionStrategy) TTL() time.Duration { return s.cfg.TTL }

func (s *SessionStrategy) Login(ctx context.Context, username, password string, _ Client) (*LoginReport, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.session"),
		logger.Op("Login"),
	)

	status, err := checkCredentials(ctx, s.store, s.hasher, username, password)
	if err != nil {
		return nil, err
	}
	if status != LoginSuccess {
		log.Debug("login rejected", logger.String("reason", status.String()))
		return &LoginReport{Status: status}, nil
	}

	id, err := s.establish(ctx, username)
	if err != nil {
		log.Error("session establish failed", logger.Err(err))
		return nil, err
	}

	log.Info("login successful", logger.Username(username))
	return &LoginReport{
		Status: LoginSuccess,
		Session: &SessionHandle{
			ID:        id,
			ExpiresAt: time.Now().UTC().Add(s.cfg.TTL),
		},
	}, nil
}

// establish generates an id and claims it in the store. Collisions are
// astronomically unlikely with 256-bit ids, but the store's first-writer-wins
// insert makes them detectable, so retry a few times rather than silently
// hijacking an existing session.
func (s *SessionStrategy) establish(ctx context.Context, username string) (string, error) {
	for attempt := 0; attempt < maxSessionIDAttempts; attempt++ {
		id, err := tokens.GenerateOpaqueToken(sessionIDBytes)
		if err != nil {
			return "", fmt.Errorf("generate session id: %w", err)
		}
		err = s.store.StoreSession(ctx, tokens.SHA256Base64URL(id), username, s.cfg.TTL)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, core.ErrConflict) {
			return "", fmt.Errorf("store session: %w", err)
		}
		metrics.SessionCollisions.Inc()
	}
	return "", ErrSessionContention
}

// ResolvePrincipal resolves the session cookie against the store. A missing
// cookie and a stale or unknown id both read as unauthenticated; an opaque id
// carries nothing verifiable on its own, so there is no malformed case here.
func (s *SessionStrategy) ResolvePrincipal(r *http.Request) (*Principal, error) {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	username, err := s.store.FindSession(r.Context(), tokens.SHA256Base64URL(cookie.Value))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	return &Principal{Username: username}, nil
}

func (s *SessionStrategy) Logout(ctx context.Context, r *http.Request) error {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return s.store.RemoveSession(ctx, tokens.SHA256Base64URL(cookie.Value))
}
