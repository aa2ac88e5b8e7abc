package lines

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestHeapAllocatorCopies(t *testing.T) {
	original := []byte("hello")
	line, err := HeapAllocator{}.Alloc(original)
	assert.NilError(t, err)

	original[0] = 'j'
	assert.Equal(t, string(line), "hello")

	empty, err := HeapAllocator{}.Alloc(nil)
	assert.NilError(t, err)
	assert.Assert(t, empty != nil)
	assert.Equal(t, len(empty), 0)
}

func TestCountingAllocator(t *testing.T) {
	counting := &CountingAllocator{}

	a, err := counting.Alloc([]byte("abc"))
	assert.NilError(t, err)
	_, err = counting.Alloc([]byte("de"))
	assert.NilError(t, err)
	assert.Equal(t, counting.Outstanding(), 2)
	assert.Equal(t, counting.OutstandingBytes(), 5)

	assert.NilError(t, counting.Free(a))
	assert.Equal(t, counting.Outstanding(), 1)
	assert.Equal(t, counting.OutstandingBytes(), 2)
	assert.Equal(t, counting.Allocs(), 2)
	assert.Equal(t, counting.Frees(), 1)
}

func TestCountingAllocatorRejectsExtraFrees(t *testing.T) {
	counting := &CountingAllocator{}
	assert.ErrorIs(t, counting.Free([]byte("x")), ErrForeignSlice)
	assert.Equal(t, counting.Frees(), 0)
}

func TestCountingAllocatorForwardsReservations(t *testing.T) {
	budget := &BudgetAllocator{Limit: 10}
	counting := &CountingAllocator{Allocator: budget}

	assert.NilError(t, counting.Reserve(8))
	assert.Equal(t, budget.Used(), 8)

	_, err := counting.Alloc([]byte("abc"))
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, counting.Allocs(), 0)

	counting.Unreserve(8)
	assert.Equal(t, budget.Used(), 0)
}

func TestBudgetAllocator(t *testing.T) {
	budget := &BudgetAllocator{Limit: 5}

	a, err := budget.Alloc([]byte("abc"))
	assert.NilError(t, err)
	_, err = budget.Alloc([]byte("de"))
	assert.NilError(t, err)
	assert.Equal(t, budget.Used(), 5)

	_, err = budget.Alloc([]byte("f"))
	assert.ErrorIs(t, err, ErrBudgetExceeded)

	assert.NilError(t, budget.Free(a))
	assert.Equal(t, budget.Used(), 2)

	assert.ErrorIs(t, budget.Reserve(4), ErrBudgetExceeded)
	assert.NilError(t, budget.Reserve(3))
	assert.Equal(t, budget.Used(), 5)

	// Unreserving too much doesn't go negative
	budget.Unreserve(100)
	assert.Equal(t, budget.Used(), 0)

	assert.ErrorIs(t, budget.Free([]byte("x")), ErrForeignSlice)
}
