// Package persistence provides standardized error types for storage
// operations.
package persistence

import (
	"errors"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrJobNotFound indicates a job was not found by the given identifier.
	ErrJobNotFound = errors.New("job not found")

	// ErrExecutionNotFound indicates an execution was not found.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrCampaignNotFound indicates a campaign was not found.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrContactListNotFound indicates a contact list was not found.
	ErrContactListNotFound = errors.New("contact list not found")

	// ErrInstanceNotFound indicates a messaging instance was not found.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrAccountNotFound indicates an owner account was not found.
	ErrAccountNotFound = errors.New("account not found")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrExecutionNotFound) ||
		errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrContactListNotFound) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}
