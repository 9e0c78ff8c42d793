package repository

import "errors"

var (
	// ErrNotFound indicates no record matched the lookup key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
)
