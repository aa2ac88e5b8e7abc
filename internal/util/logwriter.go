package util

import (
	"strings"
	"sync"
)

// LogWriter collects log lines in memory, so that they can be printed after
// we're done writing to stdout.
type LogWriter struct {
	lock   sync.Mutex
	buffer strings.Builder
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.buffer.Write(p)
}

func (w *LogWriter) String() string {
	w.lock.Lock()
	defer w.lock.Unlock()

	return w.buffer.String()
}
