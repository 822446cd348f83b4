package websitescan

import "errors"

var (
	// ErrNotFound is returned when the website scan does not exist.
	ErrNotFound = errors.New("website scan not found")

	// ErrAlreadyExists is returned by Store.Create when the id is taken.
	ErrAlreadyExists = errors.New("website scan already exists")

	// ErrConflict is returned by Store.Replace when the stored ETag no
	// longer matches the one the document was read with.
	ErrConflict = errors.New("website scan was modified concurrently")

	// ErrConflictRetriesExhausted is returned by the Writer when every
	// attempt ended in ErrConflict. It wraps the last conflict.
	ErrConflictRetriesExhausted = errors.New("website scan update retries exhausted")
)
