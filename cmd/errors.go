package cmd

import (
	"fmt"
	"strings"
)

// OrganizationNotFoundError indicates an organization lookup failure.
type OrganizationNotFoundError struct {
	ID int64
}

func (e *OrganizationNotFoundError) Error() string {
	return fmt.Sprintf("organization %d not found", e.ID)
}

// InvalidOutputFormatError reports an --output value outside table, json and yaml.
type InvalidOutputFormatError struct {
	Format string
}

func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (expected table, json or yaml)", e.Format)
}

// AssessmentFailedError carries the banner text of a failed run.
type AssessmentFailedError struct {
	Message string
	Err     error
}

func (e *AssessmentFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("assessment failed: %v", e.Err)
	}
	return "assessment failed"
}

func (e *AssessmentFailedError) Unwrap() error {
	return e.Err
}

// TechStackEditError lists the technologies that could not be applied.
type TechStackEditError struct {
	Op     string
	Labels []string
}

func (e *TechStackEditError) Error() string {
	return fmt.Sprintf("could not %s: %s", e.Op, strings.Join(e.Labels, ", "))
}
