package database

import "errors"

var (
	// ErrNotFound is returned when a key or run does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and creation was not requested.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrEmptyKey is returned when a key/value operation gets an empty key.
	ErrEmptyKey = errors.New("empty key")
)

// errStopIteration can be returned from an Iterate callback to stop early
// without an error. Use StopIteration to obtain it.
var errStopIteration = errors.New("stop iteration")

// StopIteration returns the sentinel that ends Iterate early.
func StopIteration() error {
	return errStopIteration
}
