//go:build linux

package source

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Tell the kernel we'll be reading front to back, so that it reads ahead more
// aggressively
func adviseSequential(file *os.File) {
	err := unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	if err != nil {
		// Not a problem, just slower
		log.Debug(fmt.Sprint("fadvise(SEQUENTIAL) failed for ", file.Name(), ": ", err))
	}
}
