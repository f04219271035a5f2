package credential

import "errors"

var (
	// ErrEmptySecret is returned when no credential is configured.
	ErrEmptySecret = errors.New("credential: secret is empty")

	// ErrInvalidSecret is returned when the credential cannot be typed on the keypad.
	ErrInvalidSecret = errors.New("credential: secret contains a key not on the keypad")
)
