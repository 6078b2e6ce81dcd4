package archive

import "errors"

var (
	// ErrDecompress is returned when the gzip stream is corrupt
	ErrDecompress = errors.New("corrupt gzip stream")
	// ErrArchiveTooLarge is returned when extracted content exceeds the size limit
	ErrArchiveTooLarge = errors.New("archive content exceeds size limit")
	// ErrInvalidArchivePath is returned when a tar entry has a malicious path
	ErrInvalidArchivePath = errors.New("invalid archive path")
)
