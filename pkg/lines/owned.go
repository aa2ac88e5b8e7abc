package lines

import (
	"errors"
	"io"
	"iter"
	"unsafe"
)

// Initial capacity of the list of handed out lines
const ledgerCapacity = 64

// What NewOwned() asks a Reserver for up front
const ledgerBytes = ledgerCapacity * int(unsafe.Sizeof([]byte(nil)))

// An OwnedIterator returns lines copied by an Allocator. The copies stay valid
// until Release() or Destroy(), no matter how many more lines are read.
//
// An OwnedIterator must not be used from more than one goroutine at a time.
type OwnedIterator struct {
	it    *Iterator
	alloc Allocator

	// Every line returned and not yet released
	owned [][]byte

	reserved int
}

// NewOwned creates an OwnedIterator over src, with buf and src borrowed just
// like for New().
func NewOwned(src io.ReaderAt, buf []byte, alloc Allocator) (*OwnedIterator, error) {
	return newOwned(New(src, buf), alloc)
}

// OpenOwned opens the named file and returns an OwnedIterator owning it. The
// file is closed by Close(), the lines are released by Destroy().
func OpenOwned(filename string, buf []byte, alloc Allocator) (*OwnedIterator, error) {
	it, err := Open(filename, buf)
	if err != nil {
		return nil, err
	}

	owned, err := newOwned(it, alloc)
	if err != nil {
		_ = it.Close()
		return nil, err
	}
	return owned, nil
}

func newOwned(it *Iterator, alloc Allocator) (*OwnedIterator, error) {
	if alloc == nil {
		return nil, &AllocationError{Err: ErrNilAllocator}
	}

	owned := &OwnedIterator{
		it:    it,
		alloc: alloc,
	}

	if reserver, ok := alloc.(Reserver); ok {
		err := reserver.Reserve(ledgerBytes)
		if err != nil {
			return nil, &AllocationError{Size: ledgerBytes, Err: err}
		}
		owned.reserved = ledgerBytes
	}

	owned.owned = make([][]byte, 0, ledgerCapacity)
	return owned, nil
}

// Next returns a copy of the next line, without its terminator.
//
// Errors are the same as for Iterator.Next(), plus *AllocationError if the
// copy couldn't be made. After an *AllocationError the line is not consumed,
// and the next call will try copying it again.
func (o *OwnedIterator) Next() ([]byte, error) {
	view, err := o.it.Next()
	if err != nil {
		return nil, err
	}

	line, err := o.alloc.Alloc(view)
	if err != nil {
		o.it.unconsume()
		return nil, &AllocationError{Size: len(view), Err: err}
	}

	o.owned = append(o.owned, line)
	return line, nil
}

// All iterates over the remaining lines. Iteration stops at the end of the
// source, or after yielding the first error.
func (o *OwnedIterator) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			line, err := o.Next()
			if errors.Is(err, ErrDone) {
				return
			}
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}

// Release frees one line returned by Next() before the rest of them are freed
// by Destroy().
func (o *OwnedIterator) Release(line []byte) error {
	for i, candidate := range o.owned {
		if !sameSlice(candidate, line) {
			continue
		}

		last := len(o.owned) - 1
		o.owned[i] = o.owned[last]
		o.owned[last] = nil
		o.owned = o.owned[:last]

		if err := o.alloc.Free(candidate); err != nil {
			return &AllocationError{Err: err}
		}
		return nil
	}

	return &AllocationError{Err: ErrForeignSlice}
}

// Destroy frees every line returned by Next() and not yet released. It does
// not close the source, do that using Close().
//
// Calling Destroy() more than once is fine.
func (o *OwnedIterator) Destroy() error {
	var errs []error
	for i, line := range o.owned {
		if err := o.alloc.Free(line); err != nil {
			errs = append(errs, err)
		}
		o.owned[i] = nil
	}
	o.owned = nil

	if o.reserved > 0 {
		o.alloc.(Reserver).Unreserve(o.reserved)
		o.reserved = 0
	}

	if len(errs) > 0 {
		return &AllocationError{Err: errors.Join(errs...)}
	}
	return nil
}

// Owned returns the number of lines returned and not yet released
func (o *OwnedIterator) Owned() int {
	return len(o.owned)
}

// Offset returns how many bytes of the source have been consumed
func (o *OwnedIterator) Offset() int64 {
	return o.it.Offset()
}

// Close closes the source if it was opened by OpenOwned(). Owned lines stay
// valid.
func (o *OwnedIterator) Close() error {
	return o.it.Close()
}

// Same backing array start and same length. All empty slices are the same.
func sameSlice(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return &a[0] == &b[0]
}
