package lines

import (
	"bytes"
)

// An Allocator makes the copies handed out by an OwnedIterator.
type Allocator interface {
	// Alloc returns a copy of b that doesn't share memory with b
	Alloc(b []byte) ([]byte, error)

	// Free releases a slice earlier returned by Alloc(). It must not be used
	// after this.
	Free(b []byte) error
}

// Allocators implementing Reserver get asked for room for an OwnedIterator's
// bookkeeping before any lines are copied.
type Reserver interface {
	Reserve(n int) error
	Unreserve(n int)
}

// HeapAllocator leaves everything to the garbage collector
type HeapAllocator struct{}

func (HeapAllocator) Alloc(b []byte) ([]byte, error) {
	if b == nil {
		return []byte{}, nil
	}
	return bytes.Clone(b), nil
}

func (HeapAllocator) Free(b []byte) error {
	return nil
}

// CountingAllocator keeps track of how many allocations are live. A nil
// Allocator means HeapAllocator.
type CountingAllocator struct {
	Allocator Allocator

	allocs int
	frees  int
	bytes  int
}

func (c *CountingAllocator) backing() Allocator {
	if c.Allocator == nil {
		return HeapAllocator{}
	}
	return c.Allocator
}

func (c *CountingAllocator) Alloc(b []byte) ([]byte, error) {
	line, err := c.backing().Alloc(b)
	if err != nil {
		return nil, err
	}

	c.allocs++
	c.bytes += len(line)
	return line, nil
}

func (c *CountingAllocator) Free(b []byte) error {
	if c.Outstanding() == 0 {
		return ErrForeignSlice
	}

	err := c.backing().Free(b)
	if err != nil {
		return err
	}

	c.frees++
	c.bytes -= len(b)
	return nil
}

func (c *CountingAllocator) Reserve(n int) error {
	if reserver, ok := c.backing().(Reserver); ok {
		return reserver.Reserve(n)
	}
	return nil
}

func (c *CountingAllocator) Unreserve(n int) {
	if reserver, ok := c.backing().(Reserver); ok {
		reserver.Unreserve(n)
	}
}

// Allocs returns the total number of successful allocations
func (c *CountingAllocator) Allocs() int {
	return c.allocs
}

// Frees returns the total number of successful releases
func (c *CountingAllocator) Frees() int {
	return c.frees
}

func (c *CountingAllocator) Outstanding() int {
	return c.allocs - c.frees
}

// OutstandingBytes returns the size of all live allocations
func (c *CountingAllocator) OutstandingBytes() int {
	return c.bytes
}

// BudgetAllocator refuses to keep more than Limit bytes alive at the same time.
// Reservations count against the same limit. A nil Allocator means
// HeapAllocator.
type BudgetAllocator struct {
	Allocator Allocator
	Limit     int

	used int
}

func (b *BudgetAllocator) backing() Allocator {
	if b.Allocator == nil {
		return HeapAllocator{}
	}
	return b.Allocator
}

func (b *BudgetAllocator) Alloc(p []byte) ([]byte, error) {
	if b.used+len(p) > b.Limit {
		return nil, ErrBudgetExceeded
	}

	line, err := b.backing().Alloc(p)
	if err != nil {
		return nil, err
	}

	b.used += len(line)
	return line, nil
}

func (b *BudgetAllocator) Free(p []byte) error {
	if len(p) > b.used {
		return ErrForeignSlice
	}

	err := b.backing().Free(p)
	if err != nil {
		return err
	}

	b.used -= len(p)
	return nil
}

func (b *BudgetAllocator) Reserve(n int) error {
	if b.used+n > b.Limit {
		return ErrBudgetExceeded
	}
	b.used += n
	return nil
}

func (b *BudgetAllocator) Unreserve(n int) {
	b.used -= min(n, b.used)
}

// Used returns how many bytes are currently allocated or reserved
func (b *BudgetAllocator) Used() int {
	return b.used
}
