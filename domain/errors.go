package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConstraintViolated is returned when a write is blocked by a unique
	// index.
	ErrConstraintViolated = errors.New("unique constraint violated")
	// ErrCursorClosed is returned when pulling from a closed cursor.
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrTargetNil is returned when a nil decoding target is given.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target is not a pointer")
	// ErrNoGeocoder is returned when a model is located by address but its
	// type has no geocoder.
	ErrNoGeocoder = errors.New("no geocoder configured")
	// ErrUnsupportedStage is returned by stores that cannot run a given
	// aggregation stage.
	ErrUnsupportedStage = errors.New("unsupported aggregation stage")
)

// ErrValidation is returned when a document carries fields its model does
// not admit or lacks fields its model requires. Any zero ErrValidation
// matches it with [errors.Is].
type ErrValidation struct {
	Model   string
	Unknown []string
	Missing []string
}

func (e ErrValidation) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Unknown) > 0 {
		parts = append(parts, "fields not admitted: "+strings.Join(e.Unknown, ", "))
	}
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "invalid document")
	}
	return fmt.Sprintf("%s: %s", e.Model, strings.Join(parts, "; "))
}

// Is implements the interface used by [errors.Is].
func (e ErrValidation) Is(target error) bool {
	_, ok := target.(ErrValidation)
	return ok
}

// ErrConfig is returned when a model definition cannot be registered.
type ErrConfig struct {
	Collection string
	Reason     string
}

func (e ErrConfig) Error() string {
	return fmt.Sprintf("invalid definition for %q: %s", e.Collection, e.Reason)
}

// Is implements the interface used by [errors.Is].
func (e ErrConfig) Is(target error) bool {
	_, ok := target.(ErrConfig)
	return ok
}

// ErrStore wraps any failure coming from the document store.
type ErrStore struct {
	Op         string
	Collection string
	Err        error

	// wrapped errors are not always comparable, keep errors.Is away from ==
	_ [0]func()
}

func (e ErrStore) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

// Unwrap returns the store error.
func (e ErrStore) Unwrap() error { return e.Err }

// Is implements the interface used by [errors.Is].
func (e ErrStore) Is(target error) bool {
	_, ok := target.(ErrStore)
	return ok
}

// ErrNotFound is returned when a document, field or address does not exist.
type ErrNotFound struct {
	Collection string
	Key        string
}

func (e ErrNotFound) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s not found", e.Key)
	}
	return fmt.Sprintf("%s: %s not found", e.Collection, e.Key)
}

// Is implements the interface used by [errors.Is].
func (e ErrNotFound) Is(target error) bool {
	_, ok := target.(ErrNotFound)
	return ok
}

// ErrDecode wraps third party decoding errors.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}
