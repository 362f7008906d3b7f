package auth

import (
	"context"
	"errors"
	"net/http"
	"time"
)

var (
	// ErrRefreshRejected means the presented refresh token did not match
	// what is on file (replay, rotation race or forgery).
	ErrRefreshRejected = errors.New("auth: refresh token rejected")

	// ErrSessionContention means session-id generation kept colliding with
	// stored ids; a storage problem, not a product path.
	ErrSessionContention = errors.New("auth: session id contention")
)

// Strategy is the polymorphic authentication contract. The three
// implementations (token, session, delegated) differ in session
// representation and lifecycle but present the same surface; credential
// validation and password hashing are identical across them.
type Strategy interface {
	// Name identifies the strategy in config, logs and metrics.
	Name() string

	// Login verifies the credentials and, on success, mints and persists
	// whatever session representation the strategy uses. The returned
	// report distinguishes unknown username from wrong password; the error
	// is reserved for storage or signing faults.
	Login(ctx context.Context, username, password string, client Client) (*LoginReport, error)

	// ResolvePrincipal extracts the strategy's session evidence from the
	// request and resolves it. (nil, nil) means unauthenticated: no
	// evidence, or evidence that merely went stale. A non-nil error
	// (token.ErrExpired, token.ErrMalformed) reports evidence that was
	// presented but failed verification; it is still "not authenticated",
	// never a server fault.
	ResolvePrincipal(r *http.Request) (*Principal, error)

	// Logout invalidates any server-side session state reachable from the
	// request. Idempotent: logging out twice, or with nothing to log out,
	// succeeds.
	Logout(ctx context.Context, r *http.Request) error
}

// Refresher is implemented by strategies that support refresh-token
// rotation (the token strategy).
type Refresher interface {
	// Refresh validates the presented refresh token against the record on
	// file for the client fingerprint and, when it matches, mints a new
	// pair and overwrites the record. After a successful call the previous
	// refresh token is no longer accepted.
	Refresh(ctx context.Context, refreshToken string, client Client) (*TokenPair, error)
}

// Hasher is the password-hashing capability consumed by the registrar and
// every strategy. Implementations live outside this package.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// clock is overridable in tests.
type clock func() time.Time
