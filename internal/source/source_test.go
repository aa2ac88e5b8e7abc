package source

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/adrg/xdg"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"gotest.tools/v3/assert"

	"github.com/GoNZooo/fileutils/pkg/lines"
)

const sample = "first line\nsecond line\rthird line\n"

type recordingLogger struct {
	messages []string
}

func (l *recordingLogger) Debug(message string) { l.messages = append(l.messages, message) }
func (l *recordingLogger) Info(message string)  { l.messages = append(l.messages, message) }
func (l *recordingLogger) Error(message string) { l.messages = append(l.messages, message) }

func writeFile(t *testing.T, name string, contents []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, contents, 0o600))
	return path
}

// Reads all lines through a small buffer, to make sure offsets are honored
func readLines(t *testing.T, file *File) []string {
	t.Helper()

	var got []string
	for line, err := range lines.New(file, make([]byte, 16)).All() {
		assert.NilError(t, err)
		got = append(got, string(line))
	}
	return got
}

func assertOpensAs(t *testing.T, path string, spoolDir string) {
	t.Helper()

	file, err := Open(path, Options{SpoolDir: spoolDir})
	assert.NilError(t, err)
	assert.Assert(t, file.Spooled())
	assert.Equal(t, file.Name(), path)
	assert.DeepEqual(t, readLines(t, file), []string{"first line", "second line", "third line"})

	spoolPath := file.spoolPath
	assert.NilError(t, file.Close())

	_, err = os.Stat(spoolPath)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenPlain(t *testing.T) {
	path := writeFile(t, "plain.txt", []byte(sample))

	file, err := Open(path, Options{SpoolDir: t.TempDir()})
	assert.NilError(t, err)
	defer file.Close()

	assert.Assert(t, !file.Spooled())
	assert.DeepEqual(t, readLines(t, file), []string{"first line", "second line", "third line"})
}

func TestOpenEmpty(t *testing.T) {
	path := writeFile(t, "empty.txt", nil)

	file, err := Open(path, Options{SpoolDir: t.TempDir()})
	assert.NilError(t, err)
	defer file.Close()

	assert.Assert(t, !file.Spooled())
	assert.Assert(t, readLines(t, file) == nil)
}

func TestOpenGzip(t *testing.T) {
	var compressed bytes.Buffer
	writer := gzip.NewWriter(&compressed)
	_, err := writer.Write([]byte(sample))
	assert.NilError(t, err)
	assert.NilError(t, writer.Close())

	assertOpensAs(t, writeFile(t, "sample.txt.gz", compressed.Bytes()), t.TempDir())
}

func TestOpenZstd(t *testing.T) {
	var compressed bytes.Buffer
	writer, err := zstd.NewWriter(&compressed)
	assert.NilError(t, err)
	_, err = writer.Write([]byte(sample))
	assert.NilError(t, err)
	assert.NilError(t, writer.Close())

	assertOpensAs(t, writeFile(t, "sample.txt.zst", compressed.Bytes()), t.TempDir())
}

func TestOpenXz(t *testing.T) {
	var compressed bytes.Buffer
	writer, err := xz.NewWriter(&compressed)
	assert.NilError(t, err)
	_, err = writer.Write([]byte(sample))
	assert.NilError(t, err)
	assert.NilError(t, writer.Close())

	assertOpensAs(t, writeFile(t, "sample.txt.xz", compressed.Bytes()), t.TempDir())
}

func TestSniff(t *testing.T) {
	for input, want := range map[string]compression{
		"":                     compressionNone,
		"BZ":                   compressionNone,
		"BZh9":                 compressionBzip2,
		"BZhx is plain text":   compressionNone,
		"\x1f\x8b\x08":         compressionGzip,
		"\x28\xb5\x2f\xfd\x00": compressionZstd,
		"\xfd7zXZ\x00\x00":     compressionXz,
		"just some text\nmore": compressionNone,
	} {
		got, err := sniff(strings.NewReader(input))
		assert.NilError(t, err)
		assert.Equal(t, got, want, "input %q", input)
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open("missing.txt", Options{})

	var openError *lines.OpenError
	assert.Assert(t, errors.As(err, &openError), "got %v", err)
	assert.Equal(t, openError.Filename, "missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOpenBrokenGzip(t *testing.T) {
	path := writeFile(t, "broken.gz", []byte("\x1f\x8b\x08\x00garbage"))

	_, err := Open(path, Options{SpoolDir: t.TempDir()})
	assert.ErrorContains(t, err, "decompressing "+path)
}

func TestTryOpen(t *testing.T) {
	assert.NilError(t, TryOpen(writeFile(t, "plain.txt", []byte(sample))))

	err := TryOpen(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")

	err = TryOpen("missing.txt")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSpool(t *testing.T) {
	spoolDir := t.TempDir()

	file, err := Spool("-", strings.NewReader(sample), Options{SpoolDir: spoolDir})
	assert.NilError(t, err)
	assert.Equal(t, file.Name(), "-")
	assert.Assert(t, file.Spooled())
	assert.DeepEqual(t, readLines(t, file), []string{"first line", "second line", "third line"})

	assert.NilError(t, file.Close())
	entries, err := os.ReadDir(spoolDir)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 0)
}

func TestSpoolLimit(t *testing.T) {
	spoolDir := t.TempDir()

	file, err := Spool("-", strings.NewReader("12345"), Options{SpoolDir: spoolDir, MaxSpoolBytes: 5})
	assert.NilError(t, err)
	assert.NilError(t, file.Close())

	_, err = Spool("-", strings.NewReader("123456"), Options{SpoolDir: spoolDir, MaxSpoolBytes: 5})
	assert.ErrorIs(t, err, ErrSpoolTooLarge)

	// Nothing left behind
	entries, err := os.ReadDir(spoolDir)
	assert.NilError(t, err)
	assert.Equal(t, len(entries), 0)
}

func TestSpoolReadError(t *testing.T) {
	failure := errors.New("pipe burst")
	_, err := Spool("-", io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(failure)), Options{SpoolDir: t.TempDir()})
	assert.ErrorIs(t, err, failure)
}

func TestDefaultSpoolDir(t *testing.T) {
	assert.Equal(t, Options{}.spoolDir(), filepath.Join(xdg.CacheHome, "linecat"))
	assert.Equal(t, Options{SpoolDir: "/x"}.spoolDir(), "/x")
}

func TestLogging(t *testing.T) {
	logger := &recordingLogger{}
	SetLogger(logger)
	t.Cleanup(func() { SetLogger(nil) })

	file, err := Spool("stdin", strings.NewReader(sample), Options{SpoolDir: t.TempDir()})
	assert.NilError(t, err)
	assert.NilError(t, file.Close())

	assert.Equal(t, len(logger.messages), 2)
	assert.Assert(t, strings.HasPrefix(logger.messages[0], "Spooled 34 bytes of stdin into "), logger.messages[0])
	assert.Assert(t, strings.HasPrefix(logger.messages[1], "Removed spool file "), logger.messages[1])
}
