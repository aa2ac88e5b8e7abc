package lines

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// ErrDone is returned by Next() when there are no more lines. It is io.EOF so
// that callers can treat it like any other end of stream.
var ErrDone = io.EOF

var (
	ErrNilAllocator   = errors.New("no allocator")
	ErrBudgetExceeded = errors.New("allocation budget exceeded")

	// Returned when freeing something that this allocator didn't hand out
	ErrForeignSlice = errors.New("slice not allocated here")
)

// A single line, including its terminator, didn't fit in the buffer. Retrying
// with the same buffer will fail the same way.
type BufferTooSmallError struct {
	Size int
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("line does not fit in %d byte buffer", e.Size)
}

// Reading from the source failed
type StreamError struct {
	// Where in the source the failing read started
	Offset int64

	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("read at offset %d: %v", e.Offset, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Opening a named file failed
type OpenError struct {
	Filename string
	Err      error
}

// NewOpenError wraps err, dropping any *fs.PathError since OpenError already
// carries the file name.
func NewOpenError(filename string, err error) *OpenError {
	var pathError *fs.PathError
	if errors.As(err, &pathError) {
		err = pathError.Err
	}
	return &OpenError{Filename: filename, Err: err}
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Filename, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// An allocator failed to allocate or release memory for owned lines
type AllocationError struct {
	// Number of bytes requested, 0 when releasing
	Size int

	Err error
}

func (e *AllocationError) Error() string {
	if e.Size == 0 {
		return fmt.Sprintf("allocator: %v", e.Err)
	}
	return fmt.Sprintf("allocating %d bytes: %v", e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
