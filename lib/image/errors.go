package image

import "errors"

var (
	// ErrInvalidReference is returned when an image reference is malformed
	ErrInvalidReference = errors.New("invalid image reference")
)
