package model

import (
	"errors"
	"fmt"
)

// Sentinel errors, compare with errors.Is()
var (
	ErrValidation            = errors.New("validation failed")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotFound              = errors.New("record not found")
	ErrAmbiguous             = errors.New("key matches more than one record")
	ErrDuplicateName         = errors.New("item name already exists")

	// Operation log state errors
	ErrNotReversible   = errors.New("operation cannot be reverted")
	ErrAlreadyReverted = errors.New("operation is already reverted")
	ErrNotReverted     = errors.New("operation is not reverted")

	ErrStorage         = errors.New("storage error")
	ErrExternalService = errors.New("external service error")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failure of the backing store. It matches ErrStorage
// and unwraps to the driver error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

var domainErrors = []error{
	ErrValidation,
	ErrInsufficientInventory,
	ErrNotFound,
	ErrAmbiguous,
	ErrDuplicateName,
	ErrNotReversible,
	ErrAlreadyReverted,
	ErrNotReverted,
	ErrStorage,
}

// AsStorageError leaves domain errors untouched and wraps anything else
// into a StorageError tagged with op.
func AsStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}

// IsNotFound reports whether err means the addressed record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for errors caused by the current ledger state
// rather than by the request itself.
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrInsufficientInventory,
		ErrAmbiguous,
		ErrDuplicateName,
		ErrNotReversible,
		ErrAlreadyReverted,
		ErrNotReverted,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsClientError returns true when err should be reported back as a bad request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}
