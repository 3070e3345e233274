package store

import "errors"

var (
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBelowMinimum        = errors.New("amount below cashout minimum")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrNotFound            = errors.New("not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrUserExists          = errors.New("user exists")
	ErrCourseExists        = errors.New("course exists")
	ErrAlreadyEnrolled     = errors.New("already enrolled")
	ErrAlreadyProcessed    = errors.New("withdrawal already processed")
	ErrInvalidAction       = errors.New("invalid action")
)
