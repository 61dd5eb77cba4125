package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record is not in the journal
	ErrNotFound = errors.New("submission record not found")

	// ErrStoreClosed is returned when attempting to use a closed store
	ErrStoreClosed = errors.New("storage is closed")
)
