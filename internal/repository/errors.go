package repository

import "errors"

// Storage-layer sentinel errors. Services map these to business errors.
var (
	// ErrNotFound means the record never existed (or was already purged).
	ErrNotFound = errors.New("repository: record not found")
	// ErrExpired means the record existed but its TTL has passed. The read
	// that observes this also purges the record and its index entry.
	ErrExpired = errors.New("repository: record expired")
	// ErrVersionConflict means a conditional write lost the race: the stored
	// version no longer matches the version the caller read.
	ErrVersionConflict = errors.New("repository: version conflict")
	// ErrDuplicateEntry means a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)
