package device

import "errors"

var (
	ErrDirectoryUnavailable = errors.New("device directory unavailable")
	ErrDirectoryAuth        = errors.New("device directory rejected credentials")
)
