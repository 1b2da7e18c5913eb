package alerting

import "errors"

var (
	// ErrDuplicateName is returned when an alert name is already taken in its
	// context and overwrite was not requested.
	ErrDuplicateName = errors.New("alert name already exists")
	// ErrNotFound is returned for operations on an unknown alert.
	ErrNotFound = errors.New("alert not found")
)
