package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
	tokens "github.com/dropDatabas3/authgate/internal/security/token"
	"github.com/dropDatabas3/authgate/internal/store/core"
	"github.com/dropDatabas3/authgate/internal/token"
)

// tokenStore is the slice of the storage port the token strategy needs.
type tokenStore interface {
	core.UserStore
	core.RefreshTokenStore
}

// TokenConfig holds the token strategy knobs.
type TokenConfig struct {
	AccessTTL  time.Duration // short, minutes
	RefreshTTL time.Duration // long, weeks
}

// TokenStrategy authenticates with a stateless signed access token plus a
// rotating refresh token. The only server-side state is the
// fingerprint -> (username, refresh token) binding, which enforces at most
// one active refresh token per client fingerprint.
type TokenStrategy struct {
	codec  *token.Codec
	store  tokenStore
	hasher Hasher
	cfg    TokenConfig
	now    clock
}

var _ Strategy = (*TokenStrategy)(nil)
var _ Refresher = (*TokenStrategy)(nil)

func NewTokenStrategy(codec *token.Codec, store tokenStore, hasher Hasher, cfg TokenConfig) *TokenStrategy {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	return &TokenStrategy{codec: codec, store: store, hasher: hasher, cfg: cfg, now: time.Now}
}

func (s *TokenStrategy) Name() string { return "token" }

func (s *TokenStrategy) Login(ctx context.Context, username, password string, client Client) (*LoginReport, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.token"),
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

	pair, err := s.mintPair(username)
	if err != nil {
		log.Error("token mint failed", logger.Err(err))
		return nil, err
	}

	// One active refresh token per device: the fingerprint key makes the
	// store overwrite whatever was on file for this user agent.
	fp := tokens.SHA256Base64URL(client.UserAgent)
	if err := s.store.StoreRefreshToken(ctx, fp, username, pair.RefreshToken, s.cfg.RefreshTTL); err != nil {
		log.Error("persist refresh token failed", logger.Err(err))
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	log.Info("login successful", logger.Username(username))
	return &LoginReport{Status: LoginSuccess, Tokens: pair}, nil
}

// ResolvePrincipal reads the Authorization header, takes the second
// whitespace-separated field as the access token and verifies it. A missing
// header is plain "unauthenticated"; presented-but-bad evidence surfaces the
// codec error so callers can tell expired from malformed.
func (s *TokenStrategy) ResolvePrincipal(r *http.Request) (*Principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return nil, nil
	}
	fields := strings.Fields(header)
	if len(fields) < 2 {
		return nil, token.ErrMalformed
	}

	claims, err := s.codec.Parse(fields[1])
	if err != nil {
		return nil, err
	}
	return &Principal{Username: claims.Subject}, nil
}

func (s *TokenStrategy) Refresh(ctx context.Context, refreshToken string, client Client) (*TokenPair, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.token"),
		logger.Op("Refresh"),
	)

	claims, err := s.codec.Parse(refreshToken)
	if err != nil {
		log.Debug("refresh token failed verification", logger.Err(err))
		return nil, ErrRefreshRejected
	}

	fp := tokens.SHA256Base64URL(client.UserAgent)
	rec, err := s.store.FindRefreshToken(ctx, fp)
	if errors.Is(err, core.ErrNotFound) {
		log.Debug("no refresh token on file")
		return nil, ErrRefreshRejected
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	// Strict match: a verified signature is not enough. The presented
	// token must be the one on file for this fingerprint and subject, or
	// it is a replay of a rotated-out token.
	if rec.Token != refreshToken || rec.Username != claims.Subject {
		log.Warn("refresh token mismatch", logger.Username(claims.Subject))
		return nil, ErrRefreshRejected
	}

	pair, err := s.mintPair(claims.Subject)
	if err != nil {
		log.Error("token mint failed", logger.Err(err))
		return nil, err
	}

	// Rotation: overwriting invalidates the old refresh token.
	if err := s.store.StoreRefreshToken(ctx, fp, claims.Subject, pair.RefreshToken, s.cfg.RefreshTTL); err != nil {
		log.Error("persist rotated refresh token failed", logger.Err(err))
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	log.Info("refresh token rotated", logger.Username(claims.Subject))
	return pair, nil
}

// Logout drops the refresh-token binding for the calling client. The access
// token stays valid until it expires (stateless by design); idempotent.
func (s *TokenStrategy) Logout(ctx context.Context, r *http.Request) error {
	fp := tokens.SHA256Base64URL(r.UserAgent())
	return s.store.RemoveRefreshToken(ctx, fp)
}

func (s *TokenStrategy) mintPair(username string) (*TokenPair, error) {
	now := s.now()
	access, err := s.codec.Mint(username, s.cfg.AccessTTL, now)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.codec.Mint(username, s.cfg.RefreshTTL, now)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.UTC().Add(s.cfg.AccessTTL),
	}, nil
}
