// Package memory is the in-process storage adapter, used for development and
// tests. Backed by go-cache; its Add operation gives the first-writer-wins
// guarantee the session collision check needs.
package memory

import (
	"context"
	"time"

	"github.com/dropDatabas3/authgate/internal/store/core"
	gocache "github.com/patrickmn/go-cache"
)

const (
	userPrefix    = "user:"
	sessionPrefix = "sess:"
	refreshPrefix = "rt:"
)

type Store struct {
	c *gocache.Cache
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (s *Store) FindPasswordHash(_ context.Context, username string) (string, error) {
	v, ok := s.c.Get(userPrefix + username)
	if !ok {
		return "", core.ErrNotFound
	}
	hash, _ := v.(string)
	return hash, nil
}

func (s *Store) StoreUser(_ context.Context, username, passwordHash string) error {
	if err := s.c.Add(userPrefix+username, passwordHash, gocache.NoExpiration); err != nil {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) StoreSession(_ context.Context, id, username string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	if err := s.c.Add(sessionPrefix+id, username, ttl); err != nil {
		return core.ErrConflict
	}
	return nil
}

func (s *Store) FindSession(_ context.Context, id string) (string, error) {
	v, ok := s.c.Get(sessionPrefix + id)
	if !ok {
		return "", core.ErrNotFound
	}
	username, _ := v.(string)
	return username, nil
}

func (s *Store) RemoveSession(_ context.Context, id string) error {
	s.c.Delete(sessionPrefix + id)
	return nil
}

func (s *Store) StoreRefreshToken(_ context.Context, fingerprint, username, refreshToken string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(refreshPrefix+fingerprint, &core.RefreshRecord{Username: username, Token: refreshToken}, ttl)
	return nil
}

func (s *Store) FindRefreshToken(_ context.Context, fingerprint string) (*core.RefreshRecord, error) {
	v, ok := s.c.Get(refreshPrefix + fingerprint)
	if !ok {
		return nil, core.ErrNotFound
	}
	rec, _ := v.(*core.RefreshRecord)
	if rec == nil {
		return nil, core.ErrNotFound
	}
	return rec, nil
}

func (s *Store) RemoveRefreshToken(_ context.Context, fingerprint string) error {
	s.c.Delete(refreshPrefix + fingerprint)
	return nil
}
