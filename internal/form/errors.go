package form

import "errors"

var (
	// ErrInvalid is matched by every *ValidationError.
	ErrInvalid = errors.New("form: invalid input")
	// ErrBusy is returned when Submit is called while a submission is in
	// flight.
	ErrBusy = errors.New("form: submission already in progress")
	// ErrDisposed is returned by a Controller after Dispose.
	ErrDisposed = errors.New("form: controller disposed")
)
