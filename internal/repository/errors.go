// Package repository holds the MySQL data access code and the sentinel
// errors shared by every storage implementation.  Handlers translate them
// into HTTP statuses: ErrForbidden is a 403, the not-found errors a 404,
// ErrUsernameExists a 409.
package repository

import "errors"

var (
	// ErrForbidden is returned when the caller acts on a show owned by
	// another account.
	ErrForbidden = errors.New("forbidden")

	ErrShowNotFound    = errors.New("show not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("animation request not found")
	ErrUsernameExists  = errors.New("username already exists")
)
