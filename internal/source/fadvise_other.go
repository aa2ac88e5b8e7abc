//go:build !linux

package source

import "os"

func adviseSequential(file *os.File) {}
