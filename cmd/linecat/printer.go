package main

import (
	"bufio"
	"fmt"
	"io"

	"github.com/rivo/uniseg"
	log "github.com/sirupsen/logrus"

	"github.com/GoNZooo/fileutils/internal/source"
	"github.com/GoNZooo/fileutils/pkg/lines"
)

type lineStats struct {
	lines int
	bytes int64

	longestBytes int

	// In terminal cells, wide characters count as two
	widestColumns int
}

func (s *lineStats) add(line []byte) {
	s.lines++
	s.longestBytes = max(s.longestBytes, len(line))
	s.widestColumns = max(s.widestColumns, uniseg.StringWidth(string(line)))
}

func (s *lineStats) print(output io.Writer, filename string) {
	fmt.Fprintf(output, "%s: %d lines, %d bytes, longest line %d bytes, widest line %d columns\n",
		filename, s.lines, s.bytes, s.longestBytes, s.widestColumns)
}

type linePrinter struct {
	output *bufio.Writer
	opts   options
	stats  lineStats
}

type numberedLine struct {
	number int
	line   []byte
}

func newLinePrinter(output *bufio.Writer, opts options) *linePrinter {
	return &linePrinter{output: output, opts: opts}
}

func (p *linePrinter) printLine(number int, line []byte) error {
	if p.opts.number {
		fmt.Fprintf(p.output, "%6d\t", number)
	}

	if p.opts.highlight && p.opts.filter.Active() {
		line = p.opts.filter.GetMatchRanges(line).Highlight(line, highlightStart, highlightEnd)
	}

	_, err := p.output.Write(line)
	if err != nil {
		return err
	}
	return p.output.WriteByte('\n')
}

func (p *linePrinter) wanted(line []byte) bool {
	return p.opts.filter.Inactive() || p.opts.filter.Matches(line)
}

// Prints lines as they come, straight out of the read buffer
func (p *linePrinter) printAll(file *source.File, buffer []byte) error {
	log.Debugf("Printing %s through a %d byte buffer", file.Name(), len(buffer))

	it := lines.New(file, buffer)
	defer func() { p.stats.bytes = it.Offset() }()

	number := 0
	for line, err := range it.All() {
		if err != nil {
			return fmt.Errorf("line %d: %w", number+1, err)
		}
		number++
		p.stats.add(line)

		if !p.wanted(line) {
			continue
		}
		if err := p.printLine(number, line); err != nil {
			return err
		}
	}

	return nil
}

func (p *linePrinter) allocator() *lines.CountingAllocator {
	var allocator lines.Allocator = lines.HeapAllocator{}
	if p.opts.allocator == allocatorSlab {
		allocator = &lines.SlabAllocator{}
	}

	if p.opts.maxMemory > 0 {
		allocator = &lines.BudgetAllocator{Allocator: allocator, Limit: p.opts.maxMemory}
	}

	return &lines.CountingAllocator{Allocator: allocator}
}

// Keeps the last lines around as owned copies, and prints them once the whole
// file has been read.
func (p *linePrinter) printTail(file *source.File, buffer []byte) error {
	log.Debugf("Printing the last %d lines of %s through a %d byte buffer, %s allocator",
		p.opts.tail, file.Name(), len(buffer), p.opts.allocator)

	counting := p.allocator()
	it, err := lines.NewOwned(file, buffer, counting)
	if err != nil {
		return err
	}
	defer func() {
		p.stats.bytes = it.Offset()
		if err := it.Destroy(); err != nil {
			log.Warn("Releasing lines of ", file.Name(), " failed: ", err)
		}
		log.Debugf("%s: %d allocations, %d frees, %d outstanding",
			file.Name(), counting.Allocs(), counting.Frees(), counting.Outstanding())
	}()

	// Ring buffer of the last lines seen
	ring := make([]numberedLine, p.opts.tail)
	first := 0
	kept := 0

	number := 0
	for line, err := range it.All() {
		if err != nil {
			return fmt.Errorf("line %d: %w", number+1, err)
		}
		number++
		p.stats.add(line)

		if !p.wanted(line) {
			if err := it.Release(line); err != nil {
				return err
			}
			continue
		}

		if kept < len(ring) {
			ring[(first+kept)%len(ring)] = numberedLine{number: number, line: line}
			kept++
			continue
		}

		// Full, drop the oldest line
		if err := it.Release(ring[first].line); err != nil {
			return err
		}
		ring[first] = numberedLine{number: number, line: line}
		first = (first + 1) % len(ring)
	}

	for i := 0; i < kept; i++ {
		entry := ring[(first+i)%len(ring)]
		if err := p.printLine(entry.number, entry.line); err != nil {
			return err
		}
	}

	return nil
}
