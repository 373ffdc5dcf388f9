package portal

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity is absent after a successful CRM
// call, or the CRM answered 404 for a direct read.
var ErrNotFound = errors.New("not found")

// ErrNoCRMIdentity is returned when a signed-in email has no CRM contact or
// the contact has no company.
var ErrNoCRMIdentity = errors.New("no CRM identity for user")

// ValidationError reports a missing or malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// CapacityError reports an upload over the file count or size limit.
type CapacityError struct {
	Message string
}

func (e *CapacityError) Error() string { return e.Message }
