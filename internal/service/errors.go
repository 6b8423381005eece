package service

import (
	"errors"

	"github.com/tork-crm/tork-api/internal/syncer"
)

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the user lacks the role for an action
	ErrForbidden = errors.New("forbidden")

	// ErrHelpdeskUnavailable is returned when the helpdesk rejected or failed
	// a call the operation cannot complete without
	ErrHelpdeskUnavailable = errors.New("helpdesk unavailable")
)

// Lead ingestion and contact resolution errors
var (
	// ErrMissingIdentityKey is returned when neither phone nor email was given
	ErrMissingIdentityKey = errors.New("phone or email is required to identify a contact")

	// ErrMissingPhone is returned when a lead arrives without a phone number
	ErrMissingPhone = errors.New("phone is required for deduplication")

	// ErrMissingRequiredPhone is returned when a new contact would be created
	// without a phone while contacts.requirePhone is on
	ErrMissingRequiredPhone = errors.New("phone is required to create a contact")

	// ErrPotentialDuplicate marks a resolution where phone and email point at
	// different contacts, or where a key could not be backfilled. Never fatal.
	ErrPotentialDuplicate = errors.New("potential duplicate contact")

	// ErrInvalidValue marks an unparseable optional lead field; the field is dropped
	ErrInvalidValue = errors.New("invalid value")

	// ErrTransactionFailure is returned when the lead transaction rolled back
	ErrTransactionFailure = errors.New("transaction failed")

	// ErrExternalSyncFailure marks a failed helpdesk mirror; logged, never returned to callers
	ErrExternalSyncFailure = syncer.ErrDeliveryFailed
)
