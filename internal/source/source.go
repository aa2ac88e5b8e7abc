// Package source turns file names and streams into something the line
// iterator can read: an io.ReaderAt.
//
// Plain files are used as they are. Compressed files and streams are first
// spooled into a cache file.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/GoNZooo/fileutils/pkg/lines"
)

var ErrSpoolTooLarge = errors.New("input too large to spool")

type Options struct {
	// Where spool files go. Defaults to $XDG_CACHE_HOME/linecat.
	SpoolDir string

	// Refuse spooling more than this many bytes. 0 means no limit.
	MaxSpoolBytes int64
}

func (o Options) spoolDir() string {
	if o.SpoolDir != "" {
		return o.SpoolDir
	}
	return filepath.Join(xdg.CacheHome, "linecat")
}

// A File is a seekable source for lines.Iterator
type File struct {
	file *os.File
	name string

	// Non-empty if this is a spool file we should remove on Close()
	spoolPath string
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

// Name returns the name the file was opened by, not the spool file name
func (f *File) Name() string {
	return f.name
}

// Spooled says true if this file is a decompressed or stream copy
func (f *File) Spooled() bool {
	return f.spoolPath != ""
}

// Close closes the file and removes any spool file
func (f *File) Close() error {
	err := f.file.Close()
	if f.spoolPath == "" {
		return err
	}

	removeErr := os.Remove(f.spoolPath)
	if removeErr != nil {
		log.Error(fmt.Sprint("Failed to remove spool file ", f.spoolPath, ": ", removeErr))
	} else {
		log.Debug("Removed spool file " + f.spoolPath)
	}
	f.spoolPath = ""

	return errors.Join(err, removeErr)
}

// TryOpen checks that a file can be opened, without doing anything else with
// it.
func TryOpen(name string) error {
	stat, err := os.Stat(name)
	if err != nil {
		return lines.NewOpenError(name, err)
	}
	if stat.IsDir() {
		return &lines.OpenError{Filename: name, Err: errors.New("is a directory")}
	}

	file, err := os.Open(name)
	if err != nil {
		return lines.NewOpenError(name, err)
	}
	return file.Close()
}

// Open opens the named file. Compressed files are decompressed into a spool
// file.
func Open(name string, options Options) (*File, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, lines.NewOpenError(name, err)
	}

	compression, err := sniff(file)
	if err != nil {
		_ = file.Close()
		return nil, lines.NewOpenError(name, err)
	}

	if compression == compressionNone {
		adviseSequential(file)
		log.Debug("Opened " + name)
		return &File{file: file, name: name}, nil
	}
	defer file.Close()

	log.Debug(fmt.Sprint("Decompressing ", compression, " file ", name))
	decompressed, err := decompress(compression, file)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	defer decompressed.Close()

	spooled, err := Spool(name, decompressed, options)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", name, err)
	}
	return spooled, nil
}

// Spool copies a stream into a spool file, so that it can be read at any
// offset. The stream is read to its end.
func Spool(name string, stream io.Reader, options Options) (*File, error) {
	dir := options.spoolDir()
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return nil, fmt.Errorf("creating spool directory: %w", err)
	}

	spool, err := os.CreateTemp(dir, "spool-*")
	if err != nil {
		return nil, fmt.Errorf("creating spool file: %w", err)
	}

	cleanup := func() {
		_ = spool.Close()
		_ = os.Remove(spool.Name())
	}

	if options.MaxSpoolBytes > 0 {
		// One extra byte so we can tell "exactly at the limit" from "over it"
		stream = io.LimitReader(stream, options.MaxSpoolBytes+1)
	}

	written, err := io.Copy(spool, stream)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("spooling %s: %w", name, err)
	}

	if options.MaxSpoolBytes > 0 && written > options.MaxSpoolBytes {
		cleanup()
		return nil, fmt.Errorf("spooling %s: %w (limit is %d bytes)", name, ErrSpoolTooLarge, options.MaxSpoolBytes)
	}

	log.Debug(fmt.Sprint("Spooled ", written, " bytes of ", name, " into ", spool.Name()))
	return &File{file: spool, name: name, spoolPath: spool.Name()}, nil
}
