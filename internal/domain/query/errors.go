package query

import "errors"

// Sentinel kinds for query errors.
var (
	ErrEmptyResultSet = errors.New("empty result set")
)
