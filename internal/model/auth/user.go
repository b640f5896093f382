package auth

import "time"

// User is a registered account. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials is the register/login payload. Login is accepted as an alias
// of Username for older clients.
type Credentials struct {
	Username string `json:"username"`
	Login    string `json:"login,omitempty"`
	Password string `json:"password"`
}

// Name returns the effective account name.
func (c Credentials) Name() string {
	if c.Username != "" {
		return c.Username
	}
	return c.Login
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Session is the client-side record of a logged-in user.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Valid reports whether the session carries a token.
func (s Session) Valid() bool {
	return s.Token != ""
}
