package session

import "context"

// Repository defines the interface for session persistence
type Repository interface {
	// Load returns the stored session or ErrSessionNotFound
	Load(ctx context.Context) (*Session, error)

	// Save replaces the stored session
	Save(ctx context.Context, s *Session) error

	// Clear removes the stored session; clearing an absent session is not an error
	Clear(ctx context.Context) error
}
