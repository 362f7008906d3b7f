package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/store/core"
	"github.com/dropDatabas3/authgate/internal/validation"
)

// Registrar runs the registration flow: format checks, existence check,
// hash, persist. Exactly one StoreUser call happens, and only on success.
type Registrar struct {
	users  core.UserStore
	hasher Hasher
}

func NewRegistrar(users core.UserStore, hasher Hasher) *Registrar {
	return &Registrar{users: users, hasher: hasher}
}

// Register checks the credentials and persists a new user. The status covers
// every user-correctable outcome; the error is reserved for storage and
// hashing faults.
func (g *Registrar) Register(ctx context.Context, username, password string) (RegistrationStatus, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.register"),
		logger.Op("Register"),
	)

	if !validation.UsernameValid(username) {
		return RegistrationInvalidUsername, nil
	}
	if !validation.PasswordValid(password) {
		return RegistrationInvalidPassword, nil
	}

	_, err := g.users.FindPasswordHash(ctx, username)
	switch {
	case err == nil:
		return RegistrationUserExists, nil
	case !errors.Is(err, core.ErrNotFound):
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		log.Error("password hash failed", logger.Err(err))
		return 0, fmt.Errorf("hash password: %w", err)
	}

	if err := g.users.StoreUser(ctx, username, hash); err != nil {
		// A concurrent registration can win between the existence check
		// and the insert; the store reports that as a conflict.
		if errors.Is(err, core.ErrConflict) {
			return RegistrationUserExists, nil
		}
		log.Error("store user failed", logger.Err(err))
		return 0, fmt.Errorf("store user: %w", err)
	}

	log.Info("user registered", logger.Username(username))
	return RegistrationOK, nil
}

// checkCredentials is the login-side credential verification shared by the
// strategies: look up the hash, verify the password. The boolean outcome
// pair maps onto LoginNonExistingUsername / LoginWrongPassword.
func checkCredentials(ctx context.Context, users core.UserStore, hasher Hasher, username, password string) (LoginStatus, error) {
	hash, err := users.FindPasswordHash(ctx, username)
	if errors.Is(err, core.ErrNotFound) {
		return LoginNonExistingUsername, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if !hasher.Verify(password, hash) {
		return LoginWrongPassword, nil
	}
	return LoginSuccess, nil
}
