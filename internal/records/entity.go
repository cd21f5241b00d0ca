package records

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not valid in the current mode.
	ErrInvalidTransition = errors.New("records: invalid transition")
	// ErrBusy is returned while a previous mutation on the same manager is still outstanding.
	ErrBusy = errors.New("records: mutation in flight")
	// ErrRecordNotFound is returned when an id is not part of the current list.
	ErrRecordNotFound = errors.New("records: record not found")
	// ErrUnknownField is returned by SetField for names the draft does not carry.
	ErrUnknownField = errors.New("records: unknown draft field")
	// ErrInvalidField is returned when a submitted value cannot be stored in the draft field.
	ErrInvalidField = errors.New("records: invalid field value")
)

// Mode is the modal state of a record page.
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeEditing          Mode = "editing"
	ModeConfirmingDelete Mode = "confirming_delete"
)

// API is the subset of the REST client used by a Manager.
type API interface {
	Get(ctx context.Context, path string, dest any) error
	Post(ctx context.Context, path string, body, dest any) error
	Put(ctx context.Context, path string, body, dest any) error
	Delete(ctx context.Context, path string) error
}

// Entity adapts one record type to the generic Manager.
type Entity[R any, D any] interface {
	// Resource is the collection path, for example "/products".
	Resource() string
	RecordID(record R) string
	NewDraft() D
	// DraftFrom copies the editable fields of record, normalising references to ids.
	DraftFrom(record R) D
	SetField(draft *D, name, value string) error
	// Payload builds the wire body sent on create and update.
	Payload(draft D) any
}

// InvalidFieldError describes a submitted value that SetField could not store.
type InvalidFieldError struct {
	Field string
	Value string
	Cause error
}

func (e *InvalidFieldError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s=%q", ErrInvalidField, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: %s=%q: %v", ErrInvalidField, e.Field, e.Value, e.Cause)
}

// Unwrap exposes both the sentinel and the parse failure.
func (e *InvalidFieldError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidField}
	}
	return []error{ErrInvalidField, e.Cause}
}

// FieldError reports a rejected SetField call.
func FieldError(name, value string, cause error) error {
	return &InvalidFieldError{Field: name, Value: value, Cause: cause}
}

// UnknownField reports a field name the draft does not carry.
func UnknownField(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownField, name)
}
