// Package store provides the persistence layer used by the ingestion workers.
// Workers depend on narrow interfaces they declare themselves; Memory is the
// reference implementation backing tests and single-process runs.
package store

import "errors"

var (
	// ErrNotFound is returned when no row matches the requested natural key.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidInput is returned for nil records or empty natural keys.
	ErrInvalidInput = errors.New("store: invalid input")
)
