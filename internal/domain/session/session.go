package session

import (
	"context"
	"strings"
	"time"

	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// Session carries the opaque bearer token used against the SHIELD backend.
// It is created by the CLI login stub and injected wherever requests are made.
type Session struct {
	token     string
	operator  string
	createdAt time.Time
}

// NewSession creates a session for the given token
func NewSession(token, operator string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, sharedErrors.ErrEmptyToken
	}
	return &Session{
		token:     token,
		operator:  operator,
		createdAt: time.Now().UTC(),
	}, nil
}

// Reconstruct creates a session from persisted data (for repository use)
func Reconstruct(token, operator string, createdAt time.Time) *Session {
	return &Session{
		token:     token,
		operator:  operator,
		createdAt: createdAt,
	}
}

// Token returns the bearer token. A nil session has no token.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return s.token
}

func (s *Session) Operator() string {
	if s == nil {
		return ""
	}
	return s.operator
}

func (s *Session) CreatedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.createdAt
}

// Authenticated reports whether a token is present.
func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

type contextKey struct{}

// NewContext returns a context carrying the session.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
