package errors

import "errors"

// Domain errors
var (
	// Organization errors
	ErrOrganizationNotFound    = errors.New("organization not found")
	ErrOrganizationNotSelected = errors.New("no organization selected")
	ErrInvalidOrganizationID   = errors.New("invalid organization ID")

	// Tech stack errors
	ErrEmptyTechnology     = errors.New("technology label cannot be empty")
	ErrDuplicateTechnology = errors.New("technology already in stack")
	ErrEmptyTechStack      = errors.New("tech stack is empty")

	// Assessment errors
	ErrInvalidAssessmentType = errors.New("invalid assessment type")
	ErrAssessmentInProgress  = errors.New("assessment already in progress")
	ErrAssessmentFailed      = errors.New("assessment failed")
	ErrInvalidView           = errors.New("invalid result view")

	// Finding errors
	ErrTestCaseNotFound      = errors.New("test case not found")
	ErrVulnerabilityNotFound = errors.New("vulnerability not found")
	ErrInvalidFindingID      = errors.New("invalid finding ID")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyToken      = errors.New("session token cannot be empty")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrValidation = errors.New("validation error")
)
