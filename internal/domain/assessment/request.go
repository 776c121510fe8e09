package assessment

import (
	"fmt"

	"github.com/shieldsec/shield-cli/internal/domain/organization"
	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// Request is one complete submission. It is built fresh for every run and is
// only constructible when its preconditions hold.
type Request struct {
	organizationID int64
	techStack      []string
	assessmentType Type
}

// NewRequest validates the submission preconditions.
func NewRequest(organizationID int64, stack organization.TechStack, t Type) (*Request, error) {
	if organizationID <= 0 {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrValidation, sharedErrors.ErrOrganizationNotSelected)
	}
	if stack.IsEmpty() {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrValidation, sharedErrors.ErrEmptyTechStack)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrValidation, sharedErrors.ErrInvalidAssessmentType)
	}
	return &Request{
		organizationID: organizationID,
		techStack:      stack.Labels(),
		assessmentType: t,
	}, nil
}

func (r *Request) OrganizationID() int64 {
	return r.organizationID
}

func (r *Request) TechStack() []string {
	out := make([]string, len(r.techStack))
	copy(out, r.techStack)
	return out
}

func (r *Request) Type() Type {
	return r.assessmentType
}
