package organization

import (
	"strings"

	sharedErrors "github.com/shieldsec/shield-cli/internal/shared/errors"
)

// TechStack is an ordered set of technology labels. Labels are trimmed on
// insertion and compared case-sensitively; order is first-insertion order.
type TechStack struct {
	labels []string
}

// NewTechStack builds a stack from raw labels, dropping blanks and duplicates.
func NewTechStack(labels ...string) TechStack {
	var s TechStack
	for _, label := range labels {
		_ = s.Add(label)
	}
	return s
}

// Add appends a trimmed label. Blank labels and exact duplicates are rejected
// and leave the stack unchanged.
func (s *TechStack) Add(label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return sharedErrors.ErrEmptyTechnology
	}
	if s.Contains(label) {
		return sharedErrors.ErrDuplicateTechnology
	}
	s.labels = append(s.labels, label)
	return nil
}

// Remove drops the first exact match and reports whether anything was removed.
func (s *TechStack) Remove(label string) bool {
	for i, l := range s.labels {
		if l == label {
			s.labels = append(s.labels[:i:i], s.labels[i+1:]...)
			return true
		}
	}
	return false
}

func (s TechStack) Contains(label string) bool {
	for _, l := range s.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (s TechStack) Len() int {
	return len(s.labels)
}

func (s TechStack) IsEmpty() bool {
	return len(s.labels) == 0
}

// Labels returns a copy of the stack contents.
func (s TechStack) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}
