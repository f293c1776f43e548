package project

import "errors"

var (
	// ErrNotFound indicates the project does not exist.
	ErrNotFound = errors.New("project not found")
	// ErrConflict indicates the project was changed or created by someone
	// else since it was loaded.
	ErrConflict = errors.New("project was modified concurrently")
	// ErrInvalidName indicates a project or parameter name failed validation.
	ErrInvalidName = errors.New("invalid name")
)
