package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrNoNumericColumns = errors.New("no numeric subject columns")
)
