package letter

import "errors"

var (
	// ErrUnknownCourse indicates a course code absent from the catalog.
	ErrUnknownCourse = errors.New("unknown course code")

	// ErrUnknownLocation indicates a location with no catalog entry.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrBadDate indicates an unparseable start or end date field.
	ErrBadDate = errors.New("invalid date")
)
