package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/authgate/internal/auth"
	"github.com/dropDatabas3/authgate/internal/metrics"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

const (
	maxBodySize     = 64 * 1024 // 64KB
	contentTypeJSON = "application/json; charset=utf-8"
)

// cookieSessioner is implemented by strategies that carry their session in a
// cookie the HTTP layer must set and clear.
type cookieSessioner interface {
	CookieName() string
	TTL() time.Duration
}

// AuthController serves the authentication endpoints for the configured
// strategy.
type AuthController struct {
	registrar *auth.Registrar
	strategy  auth.Strategy
}

func NewAuthController(registrar *auth.Registrar, strategy auth.Strategy) *AuthController {
	return &AuthController{registrar: registrar, strategy: strategy}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return ErrInvalidJSON
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Register handles POST /v1/auth/register.
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Register"))

	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, ErrMissingFields.WithDetail("username and password are required"))
		return
	}

	status, err := c.registrar.Register(ctx, req.Username, req.Password)
	if err != nil {
		log.Error("registration failed", logger.Err(err))
		WriteError(w, ErrInternal.WithCause(err))
		return
	}
	metrics.Registrations.WithLabelValues(status.String()).Inc()

	switch status {
	case auth.RegistrationOK:
		writeJSON(w, http.StatusCreated, RegisterResponse{Username: req.Username})
	case auth.RegistrationInvalidUsername:
		WriteError(w, ErrInvalidUsername)
	case auth.RegistrationInvalidPassword:
		WriteError(w, ErrInvalidPassword)
	case auth.RegistrationUserExists:
		WriteError(w, ErrUserExists)
	default:
		WriteError(w, ErrInternal)
	}
}

// Login handles POST /v1/auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Login"))

	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		WriteError(w, ErrMissingFields.WithDetail("username and password are required"))
		return
	}

	rep, err := c.strategy.Login(ctx, req.Username, req.Password, auth.Client{UserAgent: r.UserAgent()})
	if err != nil {
		log.Error("login failed", logger.Err(err))
		WriteError(w, ErrInternal.WithCause(err))
		return
	}
	metrics.LoginAttempts.WithLabelValues(c.strategy.Name(), rep.Status.String()).Inc()

	if rep.Status != auth.LoginSuccess {
		// Unknown username and wrong password answer identically so the
		// endpoint cannot be used to probe for registered usernames.
		WriteError(w, ErrInvalidCredentials)
		return
	}

	resp := LoginResponse{Username: req.Username}
	switch {
	case rep.Tokens != nil:
		resp.TokenType = "Bearer"
		resp.AccessToken = rep.Tokens.AccessToken
		resp.RefreshToken = rep.Tokens.RefreshToken
		resp.ExpiresIn = int64(time.Until(rep.Tokens.ExpiresAt).Seconds())
	case rep.Session != nil:
		if cs, ok := c.strategy.(cookieSessioner); ok {
			http.SetCookie(w, sessionCookie(cs, rep.Session.ID, r))
		}
	case rep.Identity != nil:
		resp.Attrs = rep.Identity.Attrs
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /v1/auth/refresh; mounted only when the active
// strategy rotates refresh tokens.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Refresh"))

	refresher, ok := c.strategy.(auth.Refresher)
	if !ok {
		WriteError(w, ErrNotFound)
		return
	}

	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, ErrMissingFields.WithDetail("refresh_token is required"))
		return
	}

	pair, err := refresher.Refresh(ctx, req.RefreshToken, auth.Client{UserAgent: r.UserAgent()})
	if errors.Is(err, auth.ErrRefreshRejected) {
		metrics.RefreshRotations.WithLabelValues("rejected").Inc()
		WriteError(w, ErrRefreshRejected)
		return
	}
	if err != nil {
		log.Error("refresh failed", logger.Err(err))
		WriteError(w, ErrInternal.WithCause(err))
		return
	}
	metrics.RefreshRotations.WithLabelValues("rotated").Inc()

	writeJSON(w, http.StatusOK, RefreshResponse{
		TokenType:    "Bearer",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int64(time.Until(pair.ExpiresAt).Seconds()),
	})
}

// Logout handles POST /v1/auth/logout. Idempotent; always 204 on success,
// even when there was nothing to log out.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Logout"))

	if err := c.strategy.Logout(ctx, r); err != nil {
		log.Error("logout failed", logger.Err(err))
		WriteError(w, ErrInternal.WithCause(err))
		return
	}
	metrics.Logouts.WithLabelValues(c.strategy.Name()).Inc()

	if cs, ok := c.strategy.(cookieSessioner); ok {
		http.SetCookie(w, deletionCookie(cs, r))
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/me; runs behind RequirePrincipal.
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	if p == nil {
		WriteError(w, ErrAuthRequired)
		return
	}
	writeJSON(w, http.StatusOK, MeResponse{Username: p.Username, Attrs: p.Attrs})
}

func sessionCookie(cs cookieSessioner, id string, r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     cs.CookieName(),
		Value:    id,
		Path:     "/",
		MaxAge:   int(cs.TTL().Seconds()),
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	}
}

func deletionCookie(cs cookieSessioner, r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     cs.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	}
}
