package database

import "errors"

// ErrCacheUnavailable is returned when the configured cache backend cannot be reached
var ErrCacheUnavailable = errors.New("cache backend unavailable")
