package interfaces

import "errors"

var (
	// ErrEventNotFound is returned when an event lookup finds nothing.
	ErrEventNotFound = errors.New("event not found")

	// ErrKeyNotFound is returned when a key/value lookup finds nothing.
	ErrKeyNotFound = errors.New("key not found")

	// ErrNotConfigured is returned by constructors whose required settings
	// (API keys, endpoints) are missing. Callers check availability before use.
	ErrNotConfigured = errors.New("service not configured")
)
