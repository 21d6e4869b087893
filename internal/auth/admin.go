package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/nerrad567/miraie-core/internal/infrastructure/config"
)

// Authenticator checks the administrator's credentials and issues tokens.
type Authenticator struct {
	username     string
	passwordHash string
	secret       string
	ttl          time.Duration
}

// NewAuthenticator creates an Authenticator from the security config.
func NewAuthenticator(cfg config.SecurityConfig) *Authenticator {
	return &Authenticator{
		username:     cfg.Admin.Username,
		passwordHash: cfg.Admin.PasswordHash,
		secret:       cfg.JWT.Secret,
		ttl:          time.Duration(cfg.JWT.AccessTokenTTL) * time.Minute,
	}
}

// Login verifies username and password and returns a signed access token.
func (a *Authenticator) Login(username, password string) (string, time.Time, error) {
	if a.username == "" || a.passwordHash == "" {
		return "", time.Time{}, ErrLoginDisabled
	}

	match, err := VerifyPassword(password, a.passwordHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("verifying admin password: %w", err)
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	if !match || !userMatch {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return IssueToken(a.username, a.secret, a.ttl)
}

// Validate parses a bearer token issued by Login.
func (a *Authenticator) Validate(token string) (*Claims, error) {
	return ParseToken(token, a.secret)
}
