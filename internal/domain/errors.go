package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrPermissionDeny       = errors.New("permission denied")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConflict             = errors.New("already exists")
	ErrUnknownAppType       = errors.New("unknown application type")
	ErrUnsupportedOperation = errors.New("operation not supported for application type")
	ErrUpstream             = errors.New("external system call failed")
)
