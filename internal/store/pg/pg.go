// Package pg is the PostgreSQL storage adapter, backed by pgxpool.
// Expiry is evaluated lazily in the queries; no background eviction.
package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/dropDatabas3/authgate/internal/store/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ core.Store = (*Store)(nil)

// Open creates a connection pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MaxConnLifetime = 30 * time.Minute

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies the .sql files in fsys in lexical order. The schema files
// are idempotent (CREATE TABLE IF NOT EXISTS), so re-running is safe.
func (s *Store) Migrate(ctx context.Context, fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) FindPasswordHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *Store) StoreUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`,
		username, passwordHash)
	if isUniqueViolation(err) {
		return core.ErrConflict
	}
	return err
}

func (s *Store) StoreSession(ctx context.Context, id, username string, ttl time.Duration) error {
	ct, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, username, expires_at)
		 VALUES ($1, $2, NOW() + $3::interval)
		 ON CONFLICT (id) DO NOTHING`,
		id, username, ttl.String())
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, id string) (string, error) {
	var username string
	err := s.pool.QueryRow(ctx,
		`SELECT username FROM sessions WHERE id = $1 AND expires_at > NOW()`, id).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return username, nil
}

func (s *Store) RemoveSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (s *Store) StoreRefreshToken(ctx context.Context, fingerprint, username, refreshToken string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (fingerprint, username, token, expires_at)
		 VALUES ($1, $2, $3, NOW() + $4::interval)
		 ON CONFLICT (fingerprint) DO UPDATE
		   SET username = EXCLUDED.username,
		       token = EXCLUDED.token,
		       expires_at = EXCLUDED.expires_at`,
		fingerprint, username, refreshToken, ttl.String())
	return err
}

func (s *Store) FindRefreshToken(ctx context.Context, fingerprint string) (*core.RefreshRecord, error) {
	var rec core.RefreshRecord
	err := s.pool.QueryRow(ctx,
		`SELECT username, token FROM refresh_tokens
		 WHERE fingerprint = $1 AND expires_at > NOW()`, fingerprint).
		Scan(&rec.Username, &rec.Token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) RemoveRefreshToken(ctx context.Context, fingerprint string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE fingerprint = $1`, fingerprint)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
