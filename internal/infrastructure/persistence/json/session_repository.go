package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shieldsec/shield-cli/internal/domain/session"
	consts "github.com/shieldsec/shield-cli/internal/shared/constants"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

const sessionFileName = "session.json"

// sessionDTO is the data transfer object for JSON serialization
type sessionDTO struct {
	Token     string `json:"token"`
	Operator  string `json:"operator,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SessionRepository implements the session.Repository interface using a JSON file
type SessionRepository struct {
	filePath string
	mu       sync.RWMutex
}

// NewSessionRepository creates a new JSON-based session repository
func NewSessionRepository(dataDir string) (*SessionRepository, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, consts.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	abs, err := filepath.Abs(filepath.Join(dataDir, sessionFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session path: %w", err)
	}

	return &SessionRepository{filePath: abs}, nil
}

// Path returns the location of the session file
func (r *SessionRepository) Path() string {
	return r.filePath
}

// Load returns the stored session
func (r *SessionRepository) Load(ctx context.Context) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, sharedErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}

	var dto sessionDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	if dto.Token == "" {
		return nil, sharedErrors.ErrSessionNotFound
	}

	var createdAt time.Time
	if dto.CreatedAt != "" {
		createdAt, err = time.Parse(time.RFC3339, dto.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created at time: %w", err)
		}
	}

	return session.Reconstruct(dto.Token, dto.Operator, createdAt), nil
}

// Save replaces the stored session
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	if !s.Authenticated() {
		return sharedErrors.ErrEmptyToken
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dto := sessionDTO{
		Token:    s.Token(),
		Operator: s.Operator(),
	}
	if !s.CreatedAt().IsZero() {
		dto.CreatedAt = s.CreatedAt().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return err
	}

	// replace atomically; readers never observe a partial token file
	tmp := r.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, consts.SessionFilePerm); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := os.Rename(tmp, r.filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the stored session
func (r *SessionRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
