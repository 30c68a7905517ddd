package repositories

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidID is returned for ids that cannot name a document.
	ErrInvalidID = errors.New("invalid id format")
)
