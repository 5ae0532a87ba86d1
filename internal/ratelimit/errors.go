package ratelimit

import "errors"

// ErrRateLimited names the condition of an identifier having exhausted its
// token bucket for the current period. Acquire reports that condition by
// returning false; no function in this package returns ErrRateLimited.
var ErrRateLimited = errors.New("rate limit exceeded")
