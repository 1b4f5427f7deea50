package domain

import (
	"errors"
	"fmt"
)

// ErrUnparsableVersion is returned by the version normalizer when no digit
// group can be extracted. It never escapes the matching layer except where a
// fail-closed decision is documented.
var ErrUnparsableVersion = errors.New("unparsable version string")

// StorageError wraps a failure of the vulnerability store. It is fatal for
// the call that hit it and is propagated, never swallowed into an empty
// result.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vulnerability store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing operation name.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ConnectionError wraps a device session failure. Fatal only for that single
// verification; other devices in a batch keep running.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NewConnectionError wraps err with the unreachable host.
func NewConnectionError(host string, err error) *ConnectionError {
	return &ConnectionError{Host: host, Err: err}
}
