package repository

import "errors"

var (
	// ErrNotFound is returned when a named row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName is returned when a save or rename would replace an
	// existing row and overwrite was not requested.
	ErrDuplicateName = errors.New("name already exists")
)
