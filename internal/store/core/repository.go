// Package core defines the storage port consumed by the authentication
// strategies. Adapters (memory, redis, postgres) implement these interfaces;
// the core never sees a concrete driver.
package core

import (
	"context"
	"time"
)

// RefreshRecord is the stored refresh-token binding for one client
// fingerprint. At most one record exists per fingerprint.
type RefreshRecord struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// UserStore persists users. Only the password hash ever crosses this port,
// never a raw password.
type UserStore interface {
	// FindPasswordHash returns the stored hash, or ErrNotFound.
	FindPasswordHash(ctx context.Context, username string) (string, error)

	// StoreUser persists a new user. ErrConflict if the username is taken.
	StoreUser(ctx context.Context, username, passwordHash string) error
}

// SessionStore persists opaque session-id bindings.
type SessionStore interface {
	// StoreSession binds id -> username. First writer wins: ErrConflict if
	// the id already exists, which the caller treats as a collision and
	// retries with a fresh id.
	StoreSession(ctx context.Context, id, username string, ttl time.Duration) error

	// FindSession resolves an id, or ErrNotFound for stale/forged ids.
	FindSession(ctx context.Context, id string) (string, error)

	// RemoveSession deletes the binding. Removing an absent id is not an
	// error (logout is idempotent).
	RemoveSession(ctx context.Context, id string) error
}

// RefreshTokenStore persists refresh-token bindings keyed by fingerprint.
type RefreshTokenStore interface {
	// StoreRefreshToken upserts the record for the fingerprint, replacing
	// any previous token (at most one active refresh token per fingerprint).
	StoreRefreshToken(ctx context.Context, fingerprint, username, refreshToken string, ttl time.Duration) error

	// FindRefreshToken returns the record on file, or ErrNotFound.
	FindRefreshToken(ctx context.Context, fingerprint string) (*RefreshRecord, error)

	// RemoveRefreshToken deletes the binding. Removing an absent
	// fingerprint is not an error (logout is idempotent).
	RemoveRefreshToken(ctx context.Context, fingerprint string) error
}

// Store aggregates the full storage port.
type Store interface {
	UserStore
	SessionStore
	RefreshTokenStore
}
