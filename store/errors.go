package store

import "errors"

var (
	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")

	// ErrNotFound is returned when deleting a record that does not exist
	ErrNotFound = errors.New("record not found")

	// ErrUnknownKind is returned for records and requests of unregistered kinds
	ErrUnknownKind = errors.New("unknown kind")

	// ErrInvalidField is returned when a filter or a sort key refers to a
	// field that does not exist on the kind
	ErrInvalidField = errors.New("invalid field")

	// ErrInvalidValue is returned when a filter compares a field with a value
	// of an incompatible type, or orders a field that has no ordering
	ErrInvalidValue = errors.New("invalid value")

	// ErrUniqueViolation is returned by Save when two records share a value of
	// a unique index
	ErrUniqueViolation = errors.New("unique index violation")
)
