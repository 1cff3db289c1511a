// Package service implements the auth and document-registry rules on top of
// the repositories and the upload store.  Handlers map the sentinel errors
// below onto HTTP statuses.
package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation: required fields missing or malformed (400).
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials: unknown username or wrong password (400).
	// Both cases return this same value.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated: no token presented (401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: token presented but bad signature or expired (403).
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: record id matched no row (404).
	ErrNotFound = errors.New("not found")
	// ErrConflict: username already registered (409).
	ErrConflict = errors.New("conflict")
)

// ValidationError names the offending fields.  It matches ErrValidation
// under errors.Is.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string, fields ...string) error {
	return &ValidationError{Message: msg, Fields: fields}
}
