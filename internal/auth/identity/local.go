// Package identity provides a local implementation of the external identity
// manager seam. It keeps its sessions in the shared storage port and carries
// its evidence in a request header, so a deployment can run the delegated
// strategy without a third-party identity provider.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dropDatabas3/authgate/internal/auth"
	tokens "github.com/dropDatabas3/authgate/internal/security/token"
	"github.com/dropDatabas3/authgate/internal/store/core"
)

// EvidenceHeader carries the managed-session token on requests.
const EvidenceHeader = "X-Identity-Token"

// AttrToken is the attribute key under which Establish hands the raw token
// back to the login flow, so the response can surface it to the client.
const AttrToken = "identity_token"

const idBytes = 32

// LocalManager is a store-backed identity manager.
type LocalManager struct {
	sessions core.SessionStore
	ttl      time.Duration
}

var _ auth.IdentityManager = (*LocalManager)(nil)

func NewLocalManager(sessions core.SessionStore, ttl time.Duration) *LocalManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &LocalManager{sessions: sessions, ttl: ttl}
}

// LoadIdentity enriches a verified username into a principal.
func (m *LocalManager) LoadIdentity(_ context.Context, username string) (*auth.Principal, error) {
	return &auth.Principal{
		Username: username,
		Attrs:    map[string]string{"manager": "local"},
	}, nil
}

// Establish opens a managed session and stashes the raw token in the
// principal's attributes for the caller to deliver to the client.
func (m *LocalManager) Establish(ctx context.Context, p *auth.Principal) error {
	id, err := tokens.GenerateOpaqueToken(idBytes)
	if err != nil {
		return fmt.Errorf("generate identity token: %w", err)
	}
	if err := m.sessions.StoreSession(ctx, tokens.SHA256Base64URL(id), p.Username, m.ttl); err != nil {
		return fmt.Errorf("store managed session: %w", err)
	}
	if p.Attrs == nil {
		p.Attrs = map[string]string{}
	}
	p.Attrs[AttrToken] = id
	return nil
}

// Current resolves the evidence header against the store.
func (m *LocalManager) Current(r *http.Request) (*auth.Principal, error) {
	raw := strings.TrimSpace(r.Header.Get(EvidenceHeader))
	if raw == "" {
		return nil, nil
	}
	username, err := m.sessions.FindSession(r.Context(), tokens.SHA256Base64URL(raw))
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup managed session: %w", err)
	}
	return &auth.Principal{
		Username: username,
		Attrs:    map[string]string{"manager": "local"},
	}, nil
}

// Clear drops the managed session named by the evidence header; idempotent.
func (m *LocalManager) Clear(ctx context.Context, r *http.Request) error {
	raw := strings.TrimSpace(r.Header.Get(EvidenceHeader))
	if raw == "" {
		return nil
	}
	return m.sessions.RemoveSession(ctx, tokens.SHA256Base64URL(raw))
}
