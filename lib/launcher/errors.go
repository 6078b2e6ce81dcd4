package launcher

import "errors"

var (
	// ErrSpawn is returned when the command cannot be started inside the root
	ErrSpawn = errors.New("spawn failed")
)
