package object

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandle is returned for handles that were never allocated.
	ErrInvalidHandle = errors.New("invalid object handle")
	// ErrReadOnly is returned by strict writes to read-only properties.
	ErrReadOnly = errors.New("property is read-only")
	// ErrNotExtensible is returned by strict writes that would add a property
	// to a non-extensible object.
	ErrNotExtensible = errors.New("object is not extensible")
	// ErrNotCallable is returned when an accessor is not a function.
	ErrNotCallable = errors.New("value is not callable")
	// ErrPermanent is returned when redefining or deleting a permanent property.
	ErrPermanent = errors.New("property is permanent")
	// ErrNoRuntime is returned when user code must run but no Runtime is set.
	ErrNoRuntime = errors.New("no runtime attached to heap")
)

// PropertyError wraps a property failure with the key involved.
type PropertyError struct {
	Key Key
	Err error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Key, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }

func propErr(key Key, err error) error {
	return &PropertyError{Key: key, Err: err}
}
