package split

import "errors"

var (
	// ErrInvalidTimestamp marks timestamp text that matches none of the
	// accepted shapes (seconds, MM:SS, HH:MM:SS) or has a bad field.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrTimestampOutOfRange marks a cut-point at or past the media duration.
	ErrTimestampOutOfRange = errors.New("timestamp out of range")

	// ErrInvalidScaleSpec marks a malformed scale directive.
	ErrInvalidScaleSpec = errors.New("invalid scale spec")
)
