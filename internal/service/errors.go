package service

import "errors"

var (
	// ErrNotFound - the patient, doctor, or device binding does not exist.
	// Terminal for the current operation.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest - the request conflicts with current state (e.g. allocating
	// a device to a patient that already has one).
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized - missing or invalid credentials; the caller must
	// re-authenticate before retrying.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden - the acting user is not the patient's supervising doctor.
	ErrForbidden = errors.New("permission denied")

	// ErrServiceUnavailable - the telemetry platform is unreachable or
	// returned an error. Recoverable by retrying later; never to be conflated
	// with not-found.
	ErrServiceUnavailable = errors.New("service unavailable")
)
