package organization

import "context"

// Repository defines read access to organizations held by the backend
type Repository interface {
	// FindAll retrieves all organizations visible to the session
	FindAll(ctx context.Context) ([]*Organization, error)

	// FindByID retrieves a single organization
	FindByID(ctx context.Context, id int64) (*Organization, error)
}
