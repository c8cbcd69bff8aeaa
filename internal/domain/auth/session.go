// Package auth holds bearer sessions. A session names an account and a
// validity window only; roles and the blocked flag are read from the account
// on every request, so an admin block or a realtor upgrade applies at once.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"shortlet/internal/domain/user"
)

var (
	ErrTokenRequired    = errors.New("auth: token is required")
	ErrUserRequired     = errors.New("auth: user is required")
	ErrTTLInvalid       = errors.New("auth: ttl must be positive")
	ErrIssuedAtRequired = errors.New("auth: issue time is required")
	ErrSessionNotFound  = errors.New("auth: session not found")
)

type Token string

// Redacted keeps a short prefix so log lines about one session can be matched.
func (t Token) Redacted() string {
	const keep = 6
	if len(t) <= keep {
		return "***"
	}
	return string(t[:keep]) + "***"
}

type Session struct {
	Token     Token
	UserID    user.ID
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateSessionParams struct {
	Token  Token
	UserID user.ID
	TTL    time.Duration
	// Now is the issuing service's clock reading.
	Now time.Time
}

func NewSession(params CreateSessionParams) (*Session, error) {
	token := Token(strings.TrimSpace(string(params.Token)))
	switch {
	case token == "":
		return nil, ErrTokenRequired
	case strings.TrimSpace(string(params.UserID)) == "":
		return nil, ErrUserRequired
	case params.TTL <= 0:
		return nil, ErrTTLInvalid
	case params.Now.IsZero():
		return nil, ErrIssuedAtRequired
	}
	issued := params.Now.UTC()
	return &Session{
		Token:     token,
		UserID:    params.UserID,
		CreatedAt: issued,
		ExpiresAt: issued.Add(params.TTL),
	}, nil
}

// Expired reports whether the session is no longer valid at the given time.
// The boundary instant counts as expired.
func (s *Session) Expired(at time.Time) bool {
	return !at.UTC().Before(s.ExpiresAt)
}

// SessionStore persists sessions. Stores return sessions as saved; expiry is
// decided by the caller's clock.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, token Token) (*Session, error)
	Delete(ctx context.Context, token Token) error
	DeleteByUser(ctx context.Context, userID user.ID) error
}
