package sensor

import "errors"

var (
	// ErrInvalidComparison is returned for an unknown presence comparison.
	ErrInvalidComparison = errors.New("sensor: presence comparison must be gte or lte")

	// ErrNoReading is returned by sources that have nothing to report yet.
	ErrNoReading = errors.New("sensor: no reading available")
)
