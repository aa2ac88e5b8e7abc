// Package lines reads lines out of a seekable byte source through one fixed
// size buffer supplied by the caller.
//
// Memory use is bounded by the buffer. Lines longer than the buffer are
// reported with a *BufferTooSmallError instead of growing anything.
package lines

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"os"
)

// Before the first fill lastFill is set to this
const noFill = -1

// An Iterator returns lines as views into its buffer. A returned line is only
// valid until the next call to Next().
//
// An Iterator must not be used from more than one goroutine at a time.
type Iterator struct {
	src    io.ReaderAt
	closer io.Closer

	buf []byte

	// Start of unconsumed bytes in buf
	position int

	// Absolute source offset of buf[position]. Only moves when a line has
	// been consumed.
	offset int64

	// Number of valid bytes in buf after the latest fill, or noFill
	lastFill int

	// True if the latest fill reached the end of the source
	atEOF bool

	// Bytes consumed by the latest line, terminator included
	lastConsumed int
}

// New creates an Iterator over src using buf for all reads. Both are borrowed;
// the caller must not touch buf while the Iterator is in use.
//
// No I/O happens until the first call to Next().
func New(src io.ReaderAt, buf []byte) *Iterator {
	return &Iterator{
		src:      src,
		buf:      buf,
		position: len(buf),
		lastFill: noFill,
	}
}

// Open opens the named file and returns an Iterator owning it. Close() the
// Iterator to close the file.
func Open(filename string, buf []byte) (*Iterator, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, NewOpenError(filename, err)
	}

	it := New(file, buf)
	it.closer = file
	return it, nil
}

// Next returns the next line, without its terminator.
//
// At the end of the source the error is ErrDone. If a line doesn't fit in the
// buffer the error is a *BufferTooSmallError, and it will keep being until the
// caller gives up on this Iterator. Read failures come back as *StreamError.
func (it *Iterator) Next() ([]byte, error) {
	if it.lastFill != noFill && it.atEOF && it.position >= it.lastFill {
		return nil, ErrDone
	}

	if it.position >= len(it.buf) {
		// Everything in the window has been consumed, so offset points at the
		// first byte after it
		if err := it.fill(); err != nil {
			return nil, err
		}
		if it.lastFill == 0 && it.atEOF {
			return nil, ErrDone
		}
	}

	line, found := it.scan()
	if found {
		return line, nil
	}

	if it.position > 0 {
		// The window starts mid-way into the line we want, move it so that it
		// starts where the line does
		if err := it.fill(); err != nil {
			return nil, err
		}

		line, found = it.scan()
		if found {
			return line, nil
		}
	}

	return nil, &BufferTooSmallError{Size: len(it.buf)}
}

// All iterates over the remaining lines. Iteration stops at the end of the
// source, or after yielding the first error.
func (it *Iterator) All() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			line, err := it.Next()
			if errors.Is(err, ErrDone) {
				return
			}
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}

// Offset returns how many bytes of the source have been consumed
func (it *Iterator) Offset() int64 {
	return it.offset
}

// Buffered returns the number of read but not yet consumed bytes
func (it *Iterator) Buffered() int {
	if it.lastFill == noFill || it.position >= it.lastFill {
		return 0
	}
	return it.lastFill - it.position
}

// Close closes the source if it was opened by Open(). Otherwise this is a no-op.
func (it *Iterator) Close() error {
	if it.closer == nil {
		return nil
	}

	err := it.closer.Close()
	it.closer = nil
	return err
}

// Reads a full buffer starting at offset
func (it *Iterator) fill() error {
	n, err := it.src.ReadAt(it.buf, it.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return &StreamError{Offset: it.offset, Err: err}
	}

	it.position = 0
	it.lastFill = n
	it.atEOF = err != nil || n < len(it.buf)
	return nil
}

// Finds the next line in the current window and consumes it.
//
// If there is no terminator in the window, the remainder counts as a line only
// when the window ends at the end of the source and still has room for a
// terminator.
func (it *Iterator) scan() ([]byte, bool) {
	window := it.buf[it.position:it.lastFill]

	i := bytes.IndexAny(window, "\r\n")
	if i >= 0 {
		it.consume(i + 1)
		return window[:i:i], true
	}

	if it.atEOF && len(window) > 0 && it.lastFill < len(it.buf) {
		it.consume(len(window))
		return window[:len(window):len(window)], true
	}

	return nil, false
}

func (it *Iterator) consume(n int) {
	it.position += n
	it.offset += int64(n)
	it.lastConsumed = n
}

// Puts the latest line back so that the next Next() returns it again. The line
// is still in the window, so this needs no I/O.
func (it *Iterator) unconsume() {
	it.position -= it.lastConsumed
	it.offset -= int64(it.lastConsumed)
	it.lastConsumed = 0
}
