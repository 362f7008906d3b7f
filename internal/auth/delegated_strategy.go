package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/store/core"
)

// IdentityManager is an external identity layer the delegated strategy hands
// session management to. Credential verification stays in this package; the
// manager owns identity enrichment and the session lifecycle.
type IdentityManager interface {
	// LoadIdentity builds the enriched principal for a verified username.
	LoadIdentity(ctx context.Context, username string) (*Principal, error)

	// Establish opens a managed session for the principal.
	Establish(ctx context.Context, p *Principal) error

	// Current resolves the managed session on the request, (nil, nil) when
	// there is none.
	Current(r *http.Request) (*Principal, error)

	// Clear tears down the managed session; idempotent.
	Clear(ctx context.Context, r *http.Request) error
}

// DelegatedStrategy verifies credentials locally and delegates everything
// after that to an external identity manager.
type DelegatedStrategy struct {
	users   core.UserStore
	hasher  Hasher
	manager IdentityManager
}

var _ Strategy = (*DelegatedStrategy)(nil)

func NewDelegatedStrategy(users core.UserStore, hasher Hasher, manager IdentityManager) *DelegatedStrategy {
	return &DelegatedStrategy{users: users, hasher: hasher, manager: manager}
}

func (s *DelegatedStrategy) Name() string { return "delegated" }

func (s *DelegatedStrategy) Login(ctx context.Context, username, password string, _ Client) (*LoginReport, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.delegated"),
		logger.Op("Login"),
	)

	status, err := checkCredentials(ctx, s.users, s.hasher, username, password)
	if err != nil {
		return nil, err
	}
	if status != LoginSuccess {
		log.Debug("login rejected", logger.String("reason", status.String()))
		return &LoginReport{Status: status}, nil
	}

	p, err := s.manager.LoadIdentity(ctx, username)
	if err != nil {
		log.Error("load identity failed", logger.Err(err))
		return nil, fmt.Errorf("load identity: %w", err)
	}
	if err := s.manager.Establish(ctx, p); err != nil {
		log.Error("establish managed session failed", logger.Err(err))
		return nil, fmt.Errorf("establish session: %w", err)
	}

	log.Info("login successful", logger.Username(username))
	return &LoginReport{Status: LoginSuccess, Identity: p}, nil
}

func (s *DelegatedStrategy) ResolvePrincipal(r *http.Request) (*Principal, error) {
	return s.manager.Current(r)
}

func (s *DelegatedStrategy) Logout(ctx context.Context, r *http.Request) error {
	return s.manager.Clear(ctx, r)
}
