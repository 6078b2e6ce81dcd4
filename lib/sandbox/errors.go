package sandbox

import "errors"

var (
	// ErrPathEscapesRoot is returned when a staged path would land outside the root
	ErrPathEscapesRoot = errors.New("path escapes sandbox root")
	// ErrPermission is returned when an isolation call needs elevated privilege
	ErrPermission = errors.New("isolation requires elevated privilege")
	// ErrUnsupported is returned on platforms without the isolation syscalls
	ErrUnsupported = errors.New("isolation not supported on this platform")
)
