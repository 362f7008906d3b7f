// Package auth holds the authentication core: the credential registrar, the
// strategy contract shared by the token, session and delegated strategies,
// and the report types every strategy answers with.
package auth

import "time"

// Principal is the resolved identity of the caller for one request.
// Derived per request, never persisted.
type Principal struct {
	Username string
	// Attrs carries extra identity attributes supplied by an external
	// identity manager under the delegated strategy. Nil elsewhere.
	Attrs map[string]string
}

// RegistrationStatus is the outcome of a Register call.
type RegistrationStatus int

const (
	RegistrationOK RegistrationStatus = iota
	RegistrationInvalidUsername
	RegistrationInvalidPassword
	RegistrationUserExists
)

func (s RegistrationStatus) String() string {
	switch s {
	case RegistrationOK:
		return "ok"
	case RegistrationInvalidUsername:
		return "invalid_username"
	case RegistrationInvalidPassword:
		return "invalid_password"
	case RegistrationUserExists:
		return "user_exists"
	}
	return "unknown"
}

// LoginStatus is the outcome of a Login call. Unknown username and wrong
// password are distinguished internally (logging, tests) but callers must
// present both with the same external shape.
type LoginStatus int

const (
	LoginSuccess LoginStatus = iota
	LoginNonExistingUsername
	LoginWrongPassword
)

func (s LoginStatus) String() string {
	switch s {
	case LoginSuccess:
		return "success"
	case LoginNonExistingUsername:
		return "unknown_username"
	case LoginWrongPassword:
		return "wrong_password"
	}
	return "unknown"
}

// TokenPair is the session payload of the token strategy.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionHandle is the session payload of the session strategy. ID is the
// raw opaque id handed to the client; the server stores only its hash.
type SessionHandle struct {
	ID        string
	ExpiresAt time.Time
}

// LoginReport is the result of a login attempt. A report with a status other
// than LoginSuccess never carries a payload.
type LoginReport struct {
	Status   LoginStatus
	Tokens   *TokenPair     // token strategy
	Session  *SessionHandle // session strategy
	Identity *Principal     // delegated strategy
}

// Client is the per-request client evidence a login needs beyond the
// credentials; today that is the user-agent used for fingerprinting.
type Client struct {
	UserAgent string
}
