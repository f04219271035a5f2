package controller

import "errors"

// Domain errors for the controller.
var (
	// ErrMissingDependency is returned by New when a required collaborator is nil.
	ErrMissingDependency = errors.New("controller: missing dependency")

	// ErrInvalidSettings is returned by New when a period is not positive.
	ErrInvalidSettings = errors.New("controller: invalid settings")
)
