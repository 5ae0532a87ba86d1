package cache

import "errors"

// ErrStoreUnavailable wraps a Redis failure returned by Delete and
// ClearPrefix. Get and SetWithTTL never return it: they log the Redis error
// and report a miss (Get) or do nothing (SetWithTTL), so search proceeds.
var ErrStoreUnavailable = errors.New("cache store unavailable")
