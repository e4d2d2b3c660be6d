package storage

import "errors"

// Storage errors shared by every IssuanceStore implementation.
var (
	// ErrNotFound is returned when a requested issuance does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting an issuance whose ID already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrVersionConflict is returned by Update when the stored version is not
	// the one the caller read.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
