package core

import "errors"

var (
	// ErrInvalidConfiguration is returned when run parameters are rejected
	// before a simulation starts.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMalformedScenario is returned when a stored scenario is missing
	// fields, has wrong types or an unknown turn direction.
	ErrMalformedScenario = errors.New("malformed scenario")

	// ErrRecordUnavailable is returned when a scenario is loaded before it
	// was ever saved.
	ErrRecordUnavailable = errors.New("scenario record not found")
)
