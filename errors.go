package filecenter

import (
	"errors"
	"fmt"
)

// Common file center errors
var (
	ErrNotExist         = errors.New("file does not exist")
	ErrExist            = errors.New("file already exists")
	ErrNotAllowed       = errors.New("operation not allowed")
	ErrClosed           = errors.New("file center closed")
	ErrInvalidIDToken   = errors.New("invalid id token")
	ErrFileDataTaken    = errors.New("file data already taken")
	ErrFileTooLarge     = errors.New("file too large")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// PathError records an error and the operation and blob key that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// NewPathError creates a PathError
func NewPathError(op, path string, err error) *PathError {
	return &PathError{Op: op, Path: path, Err: err}
}

// IsNotExist reports whether an error indicates that a blob or file item
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsInvalidIDToken reports whether an error was caused by a malformed or
// forged id token
func IsInvalidIDToken(err error) bool {
	return errors.Is(err, ErrInvalidIDToken)
}
