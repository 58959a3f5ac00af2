package domain

import "errors"

var (
	// ErrNotConfigured indicates the service was used before a billing
	// provider was supplied.
	ErrNotConfigured = errors.New("subscription service not configured")

	// ErrPackageNotFound indicates a purchase targeted a package that is not
	// present in any cached offering.
	ErrPackageNotFound = errors.New("package not found in cached offerings")

	// ErrProviderUnavailable indicates the billing provider is temporarily
	// unreachable (circuit open).
	ErrProviderUnavailable = errors.New("billing provider unavailable")
)
