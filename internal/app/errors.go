package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoGroups = errors.New("source has no groups")
)
