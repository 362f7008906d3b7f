package httpapi

// CredentialsRequest carries username and password for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the 201 body.
type RegisterResponse struct {
	Username string `json:"username"`
}

// LoginResponse is the 200 body of a successful login. The populated fields
// depend on the active strategy: the token strategy fills the token fields,
// the session strategy sets the cookie and only echoes the username, the
// delegated strategy adds the identity attributes.
type LoginResponse struct {
	Username     string            `json:"username"`
	TokenType    string            `json:"token_type,omitempty"`
	AccessToken  string            `json:"access_token,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	ExpiresIn    int64             `json:"expires_in,omitempty"`
	Attrs        map[string]string `json:"attrs,omitempty"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse is the 200 body of a successful rotation.
type RefreshResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Username string            `json:"username"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}
