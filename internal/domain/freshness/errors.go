package freshness

import "errors"

var ErrStoreUnavailable = errors.New("freshness store unavailable")
