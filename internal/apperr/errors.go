// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")

	// ErrAmbiguous is only returned in strict mode; otherwise the first match wins.
	ErrAmbiguous   = errors.New("ambiguous lookup")
	ErrDatasetLoad = errors.New("dataset load failure")
	ErrUnresolved  = errors.New("unresolved endpoint")
	ErrPersistence = errors.New("persistence failure")
)
