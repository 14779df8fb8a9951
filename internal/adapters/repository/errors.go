package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("pump not found")
	ErrClosed   = errors.New("repository closed")
)
