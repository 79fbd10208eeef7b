package source

import "errors"

// Sentinel kinds for loader errors.
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrMissingColumn     = errors.New("missing required column")
	ErrUnsupportedFormat = errors.New("unsupported source format")
	ErrEmptySource       = errors.New("source has no header row")
)
