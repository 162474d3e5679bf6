package services

import "errors"

// Domain errors raised by the OTP and login services. Handlers translate
// these to HTTP responses; the services never see status codes.
var (
	// ErrInvalidPhone is returned when the phone number is empty after trimming
	ErrInvalidPhone = errors.New("phone number is required")

	// ErrRateLimited is returned when a code is requested inside the resend cool-down
	ErrRateLimited = errors.New("code requested too recently")

	// ErrCodeNotFound is returned when no pending code exists for the phone
	ErrCodeNotFound = errors.New("no pending code for phone")

	// ErrCodeExpired is returned when the code is past its TTL
	ErrCodeExpired = errors.New("code expired")

	// ErrTooManyAttempts is returned when the attempt budget is exhausted
	ErrTooManyAttempts = errors.New("too many verification attempts")

	// ErrCodeInvalid is returned when the submitted code does not match
	ErrCodeInvalid = errors.New("code invalid")

	// ErrCodeAlreadyUsed is returned when a concurrent request won the
	// status transition first
	ErrCodeAlreadyUsed = errors.New("code already processed")

	// ErrNotVerified is returned on login when no verified, unconsumed,
	// in-window code exists. Deliberately covers "never verified", "window
	// elapsed" and "already consumed" identically.
	ErrNotVerified = errors.New("code not verified or already used")

	// ErrInvalidToken is returned for malformed, expired or mistyped JWTs
	ErrInvalidToken = errors.New("invalid token")
)
