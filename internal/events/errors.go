package events

import "errors"

var (
	// ErrMalformedEvent marks a payload the consumer drops.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrInvalidConfig is returned for unusable event configuration.
	ErrInvalidConfig = errors.New("invalid events configuration")

	// ErrConnectionFailed is returned when the broker is unreachable.
	ErrConnectionFailed = errors.New("events connection failed")

	// ErrDisabled is returned when publishing while events are off.
	ErrDisabled = errors.New("events are disabled")
)
