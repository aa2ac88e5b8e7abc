package lines

// This value affects BenchmarkOwnedSlab() performance. Validate changes like
// this:
//
//	go test -benchmem -run='^$' -bench 'BenchmarkOwned' ./pkg/lines
const defaultSlabSize = 64 * 1024

// SlabAllocator copies lines into big shared slabs rather than allocating each
// line on its own. Lines longer than a quarter slab get their own allocation.
//
// A slab stays alive as long as any line in it does, so Free() only does
// bookkeeping. Once nothing is outstanding the current slab is dropped.
type SlabAllocator struct {
	// Defaults to 64kB if unset
	SlabSize int

	slab        []byte
	outstanding int
}

func (sa *SlabAllocator) slabSize() int {
	if sa.SlabSize <= 0 {
		return defaultSlabSize
	}
	return sa.SlabSize
}

func (sa *SlabAllocator) Alloc(b []byte) ([]byte, error) {
	if len(b) > sa.slabSize()/4 {
		line := make([]byte, len(b))
		copy(line, b)
		sa.outstanding++
		return line, nil
	}

	if len(sa.slab) < len(b) || sa.slab == nil {
		sa.slab = make([]byte, sa.slabSize())
	}

	// Capped, so appending to one line can't overwrite the next
	line := sa.slab[:len(b):len(b)]
	copy(line, b)
	sa.slab = sa.slab[len(b):]

	sa.outstanding++
	return line, nil
}

func (sa *SlabAllocator) Free(b []byte) error {
	if sa.outstanding == 0 {
		return ErrForeignSlice
	}

	sa.outstanding--
	if sa.outstanding == 0 {
		sa.slab = nil
	}
	return nil
}

// Outstanding returns the number of lines allocated but not yet freed
func (sa *SlabAllocator) Outstanding() int {
	return sa.outstanding
}
