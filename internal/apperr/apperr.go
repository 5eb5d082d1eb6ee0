package apperr

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientData is returned by training when the corpus holds fewer
	// valid rows than the configured minimum. Fatal to training only; serving
	// is unaffected.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrModelUnavailable means no trained artifacts exist. Inference treats
	// this as "assume normal", never as a failure.
	ErrModelUnavailable = errors.New("model not trained")
	// ErrInferenceCorruption means an artifact could not be decoded or does not
	// match its pair. Inference degrades to the normal default and logs it.
	ErrInferenceCorruption = errors.New("model artifact corrupt")

	// ErrDeviceNotFound: reading or pairing operation names an unknown device.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrDeviceNotPaired: a reading arrived for a device not in the Paired
	// state. The reading is rejected, never attributed to a user.
	ErrDeviceNotPaired = errors.New("device not paired")
	// ErrAlreadyPaired: the claiming user already owns a paired device, or the
	// device is already bound.
	ErrAlreadyPaired = errors.New("already paired")
	// ErrInvalidState: a pairing transition was requested from the wrong state.
	ErrInvalidState = errors.New("invalid device state")

	// ErrEmailTaken and ErrUsernameTaken guard registration uniqueness.
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
)
