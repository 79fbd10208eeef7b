package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrWrite             = errors.New("write output")
)
