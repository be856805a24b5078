package common

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrEditConflict   = errors.New("edit conflict")
)

const (
	pqForeignKeyViolation  = "23503"
	pqUniqueViolation      = "23505"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// ForeignKeyError is a helper function to check if the error is a foreign key constraint error.
func ForeignKeyError(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == name {
			return true
		}
	}

	return false
}

// UniqueViolation reports whether err is a unique constraint violation on the named constraint.
func UniqueViolation(err error, name string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation && pqErr.Constraint == name
	}

	return false
}

// RetryableTxError reports whether the transaction was aborted by the server and can be attempted again.
func RetryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}

	return false
}
