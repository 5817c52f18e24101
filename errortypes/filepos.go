// Package errortypes provides errors that carry the template position at
// which they were raised.
package errortypes

import (
	"errors"
	"fmt"
)

// ErrFilePos extends the error interface to add details on the file position where the error occurred.
type ErrFilePos interface {
	error
	File() string
	Line() int
	Col() int
}

// NewErrFilePosf creates an error conforming to the ErrFilePos interface.
// The message is prefixed with "template FILE:LINE:COL: ".  A %w verb in
// format makes the wrapped error reachable through errors.Is and errors.As.
func NewErrFilePosf(file string, line, col int, format string, args ...any) error {
	return &errFilePos{
		cause: fmt.Errorf(format, args...),
		file:  file,
		line:  line,
		col:   col,
	}
}

// IsErrFilePos identifies whether or not the provided error, or any error it
// wraps, is of the ErrFilePos type.
func IsErrFilePos(err error) bool {
	return ToErrFilePos(err) != nil
}

// ToErrFilePos returns the first ErrFilePos in err's chain, or nil if there
// is none.  If IsErrFilePos returns true, this will not return nil.
func ToErrFilePos(err error) ErrFilePos {
	var out ErrFilePos
	if errors.As(err, &out) {
		return out
	}
	return nil
}

var _ ErrFilePos = &errFilePos{}

type errFilePos struct {
	cause error
	file  string
	line  int
	col   int
}

func (e *errFilePos) Error() string {
	return fmt.Sprintf("template %s:%d:%d: %v", e.file, e.line, e.col, e.cause)
}

func (e *errFilePos) Unwrap() error {
	return errors.Unwrap(e.cause)
}

// Message returns the error text without the position prefix.
func (e *errFilePos) Message() string {
	return e.cause.Error()
}

func (e *errFilePos) File() string {
	return e.file
}

func (e *errFilePos) Line() int {
	return e.line
}

func (e *errFilePos) Col() int {
	return e.col
}
