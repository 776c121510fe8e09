package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shieldsec/shield-cli/internal/domain/session"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

const demoTokenPrefix = "demo-"

// Service manages the locally stored session. Login is a stub: it does not
// contact the backend, it only records the bearer token future requests use.
type Service struct {
	repo session.Repository
}

// NewService creates a new auth service
func NewService(repo session.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Login stores token for operator. An empty token generates a demo token.
func (s *Service) Login(ctx context.Context, token, operator string) (*session.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = demoTokenPrefix + uuid.NewString()
	}

	sess, err := session.NewSession(token, operator)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return sess, nil
}

// Logout removes the stored session. Logging out twice is not an error.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Current returns the stored session, or nil when nobody is logged in.
func (s *Service) Current(ctx context.Context) (*session.Session, error) {
	sess, err := s.repo.Load(ctx)
	if errors.Is(err, sharedErrors.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// IsDemoToken reports whether token was generated by Login.
func IsDemoToken(token string) bool {
	return strings.HasPrefix(token, demoTokenPrefix)
}
