package transfer

import "errors"

// ErrNoSources is returned when a build is attempted without any source directory.
var ErrNoSources = errors.New("no source directories configured")
