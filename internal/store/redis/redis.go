// Package redis is the distributed storage adapter. SetNX gives the
// first-writer-wins guarantee for session ids and new users.
package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/authgate/internal/store/core"
	rdb "github.com/redis/go-redis/v9"
)

const (
	userPrefix    = "user:"
	sessionPrefix = "sess:"
	refreshPrefix = "rt:"
)

type Store struct {
	c *rdb.Client
}

var _ core.Store = (*Store)(nil)

func New(addr, password string, db int) *Store {
	return &Store{c: rdb.NewClient(&rdb.Options{Addr: addr, Password: password, DB: db})}
}

// Ping verifies connectivity; called once at wiring time.
func (s *Store) Ping(ctx context.Context) error {
	return s.c.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.c.Close() }

func (s *Store) FindPasswordHash(ctx context.Context, username string) (string, error) {
	v, err := s.c.Get(ctx, userPrefix+username).Result()
	if err == rdb.Nil {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) StoreUser(ctx context.Context, username, passwordHash string) error {
	ok, err := s.c.SetNX(ctx, userPrefix+username, passwordHash, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) StoreSession(ctx context.Context, id, username string, ttl time.Duration) error {
	ok, err := s.c.SetNX(ctx, sessionPrefix+id, username, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) FindSession(ctx context.Context, id string) (string, error) {
	v, err := s.c.Get(ctx, sessionPrefix+id).Result()
	if err == rdb.Nil {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) RemoveSession(ctx context.Context, id string) error {
	return s.c.Del(ctx, sessionPrefix+id).Err()
}

func (s *Store) StoreRefreshToken(ctx context.Context, fingerprint, username, refreshToken string, ttl time.Duration) error {
	b, err := json.Marshal(core.RefreshRecord{Username: username, Token: refreshToken})
	if err != nil {
		return err
	}
	return s.c.Set(ctx, refreshPrefix+fingerprint, b, ttl).Err()
}

func (s *Store) FindRefreshToken(ctx context.Context, fingerprint string) (*core.RefreshRecord, error) {
	b, err := s.c.Get(ctx, refreshPrefix+fingerprint).Bytes()
	if err == rdb.Nil {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec core.RefreshRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) RemoveRefreshToken(ctx context.Context, fingerprint string) error {
	return s.c.Del(ctx, refreshPrefix+fingerprint).Err()
}
