package cloudstore

import "errors"

// Sentinel errors for cloud store operations.
//
// These errors can be checked using errors.Is() for specific handling:
//
//	if errors.Is(err, cloudstore.ErrUnavailable) {
//	    // breaker is open, the write was not attempted
//	}
var (
	// ErrDisabled indicates the cloud store is disabled in config.
	ErrDisabled = errors.New("cloudstore: disabled in configuration")

	// ErrNotConnected indicates the client was closed.
	ErrNotConnected = errors.New("cloudstore: not connected")

	// ErrConnectionFailed indicates the startup reachability probe failed.
	ErrConnectionFailed = errors.New("cloudstore: connection failed")

	// ErrAuthRejected indicates the store refused the auth token (401 or 403).
	// Retrying cannot fix it.
	ErrAuthRejected = errors.New("cloudstore: authentication rejected")

	// ErrInvalidURL indicates database_url is not an absolute URL.
	ErrInvalidURL = errors.New("cloudstore: invalid database url")

	// ErrWriteFailed indicates the store rejected or did not answer a write.
	ErrWriteFailed = errors.New("cloudstore: write failed")

	// ErrUnavailable indicates the circuit breaker is open and the write was skipped.
	ErrUnavailable = errors.New("cloudstore: temporarily unavailable")

	// ErrInvalidPath indicates a document path the store would reject.
	ErrInvalidPath = errors.New("cloudstore: invalid path")
)
