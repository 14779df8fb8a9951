package pump

import "errors"

// Sentinel kinds for input validation. Both mean the request is rejected,
// never that a candidate scored zero.
var (
	ErrInvalidRequirement = errors.New("invalid requirement")
	ErrInvalidPump        = errors.New("invalid pump spec")
)
