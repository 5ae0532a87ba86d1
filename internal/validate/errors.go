package validate

import "errors"

// ErrInvalidInput is returned by ValidateSearchInput when the query or
// engine list fails Phase-A validation (spec §4.5 Phase A, §7).
var ErrInvalidInput = errors.New("invalid input")
