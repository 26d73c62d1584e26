package core

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState indicates the resource's current lifecycle status does
	// not permit the requested operation.
	ErrInvalidState = errors.New("invalid state for operation")
)
