package source

import (
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionZstd
	compressionXz
	compressionBzip2
)

func (c compression) String() string {
	switch c {
	case compressionGzip:
		return "gzip"
	case compressionZstd:
		return "zstd"
	case compressionXz:
		return "xz"
	case compressionBzip2:
		return "bzip2"
	}
	return "none"
}

var magics = []struct {
	compression compression
	magic       []byte
}{
	{compressionGzip, []byte{0x1f, 0x8b}},
	{compressionZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{compressionXz, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
}

// Look at the first few bytes of r to figure out whether it's compressed
func sniff(r io.ReaderAt) (compression, error) {
	header := make([]byte, 6)
	n, err := r.ReadAt(header, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return compressionNone, err
	}
	header = header[:n]

	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.compression, nil
		}
	}

	// "BZh" followed by the block size, '1' to '9'
	if len(header) >= 4 && bytes.HasPrefix(header, []byte("BZh")) && header[3] >= '1' && header[3] <= '9' {
		return compressionBzip2, nil
	}

	return compressionNone, nil
}

func decompress(c compression, r io.Reader) (io.ReadCloser, error) {
	switch c {
	case compressionGzip:
		return gzip.NewReader(r)

	case compressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return decoder.IOReadCloser(), nil

	case compressionXz:
		reader, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(reader), nil

	case compressionBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	}

	return nil, fmt.Errorf("no decompressor for %s", c)
}
