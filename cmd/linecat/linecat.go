// Command line launcher for linecat
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/GoNZooo/fileutils/internal/search"
	"github.com/GoNZooo/fileutils/internal/source"
	"github.com/GoNZooo/fileutils/internal/util"
	"github.com/GoNZooo/fileutils/pkg/lines"
)

var versionString = ""

// Flags from here go before the ones on the command line
const envVarName = "LINECAT"

const (
	highlightStart = "\x1b[7m"
	highlightEnd   = "\x1b[27m"
)

// Where run() reads and writes, and what those things are connected to
type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	stdinIsRedirected bool
	stdoutIsTerminal  bool
}

type allocatorKind int

const (
	allocatorHeap allocatorKind = iota
	allocatorSlab
)

func (a allocatorKind) String() string {
	if a == allocatorSlab {
		return "slab"
	}
	return "heap"
}

type options struct {
	bufferSize int
	tail       int
	allocator  allocatorKind
	maxMemory  int
	filter     search.Search
	number     bool
	stats      bool
	highlight  bool
	spool      source.Options
}

// printProblemsHeader prints bug reporting information to stderr
func printProblemsHeader() {
	fmt.Fprintln(os.Stderr, "Please include the following information when reporting this problem.")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Version :", getVersion())
	fmt.Fprintln(os.Stderr, "GOOS    :", runtime.GOOS)
	fmt.Fprintln(os.Stderr, "GOARCH  :", runtime.GOARCH)
	fmt.Fprintln(os.Stderr, "Compiler:", runtime.Compiler)
	fmt.Fprintln(os.Stderr, "NumCPU  :", runtime.NumCPU())
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Stdin  is a terminal:", term.IsTerminal(int(os.Stdin.Fd())))
	fmt.Fprintln(os.Stderr, "Stdout is a terminal:", term.IsTerminal(int(os.Stdout.Fd())))
	fmt.Fprintln(os.Stderr)

	printCommandline(os.Stderr)
}

func printCommandline(output io.Writer) {
	fmt.Fprintln(output, envVarName+":", os.Getenv(envVarName))
	fmt.Fprintf(output, "Commandline: %#v\n", os.Args)
	fmt.Fprintln(output)
}

func printUsage(output io.Writer, flagSet *flag.FlagSet) {
	fmt.Fprintln(output, "Usage:")
	fmt.Fprintln(output, "  linecat [options] <file1> <file2> ...")
	fmt.Fprintln(output, "  ... | linecat [options]")
	fmt.Fprintln(output)
	fmt.Fprintln(output, "Prints files line by line using a fixed size buffer. Compressed files")
	fmt.Fprintln(output, "(gzip, zstd, xz, bzip2) and piped input are spooled to disk first.")
	fmt.Fprintln(output)
	fmt.Fprintln(output, "Options:")

	flagSet.SetOutput(output)
	flagSet.PrintDefaults()
	flagSet.SetOutput(io.Discard)

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Options can also be set in the %s environment variable.\n", envVarName)
}

// Parses things like "4096", "64k" and "1M" into a byte count
func parseSize(sizeString string) (int, error) {
	multiplier := 1
	trimmed := strings.TrimSpace(sizeString)
	switch {
	case strings.HasSuffix(trimmed, "k"), strings.HasSuffix(trimmed, "K"):
		multiplier = 1024
	case strings.HasSuffix(trimmed, "M"):
		multiplier = 1024 * 1024
	case strings.HasSuffix(trimmed, "G"):
		multiplier = 1024 * 1024 * 1024
	}
	if multiplier != 1 {
		trimmed = trimmed[:len(trimmed)-1]
	}

	value, err := strconv.ParseUint(trimmed, 10, 31)
	if err != nil {
		return 0, fmt.Errorf("Sizes look like 4096, 64k or 1M")
	}

	size := int(value) * multiplier
	if size/multiplier != int(value) {
		return 0, fmt.Errorf("Size too large: %s", sizeString)
	}

	return size, nil
}

func parseBufferSize(sizeString string) (int, error) {
	size, err := parseSize(sizeString)
	if err != nil {
		return 0, err
	}

	if size < 1 {
		return 0, fmt.Errorf("Buffer size must be at least 1")
	}

	return size, nil
}

func parseTailCount(countString string) (int, error) {
	count, err := strconv.ParseUint(countString, 10, 31)
	if err != nil {
		return 0, err
	}

	if count < 1 {
		return 0, fmt.Errorf("Tail count must be at least 1")
	}

	return int(count), nil
}

func parseAllocator(allocator string) (allocatorKind, error) {
	switch allocator {
	case "heap":
		return allocatorHeap, nil
	case "slab":
		return allocatorSlab, nil
	}

	return allocatorHeap, fmt.Errorf("Valid allocators are heap and slab")
}

// Return complete version when built with build.sh or fallback to module version (i.e. "go install")
func getVersion() string {
	if versionString != "" {
		return versionString
	}
	info, ok := debug.ReadBuildInfo()
	if ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "Should be set when building, please use build.sh to build"
}

// Parses the command line and prints the requested files.
//
// The returned bool says whether the user asked for logs to be printed on exit.
func run(args []string, env environment) (bool, error) {
	flagSet := flag.NewFlagSet("",
		flag.ContinueOnError, // We want to do our own error handling
	)
	flagSet.SetOutput(io.Discard) // We want to do our own printing

	printVersion := flagSet.Bool("version", false, "Prints the linecat version number")
	debugFlag := flagSet.Bool("debug", false, "Print debug logs after exiting")
	trace := flagSet.Bool("trace", false, "Print trace logs after exiting")

	bufferSize := flagSetFunc(flagSet, "buffer-size", 64*1024,
		"Read buffer `size`, no line can be longer than this. Examples: 4096, 64k, 1M", parseBufferSize)
	tail := flagSetFunc(flagSet, "tail", 0, "Only print the last `count` lines of each file", parseTailCount)
	allocator := flagSetFunc(flagSet, "allocator", allocatorHeap,
		"Where --tail keeps its lines: heap or slab", parseAllocator)
	maxMemory := flagSetFunc(flagSet, "max-memory", 0,
		"Max `size` of the lines kept by --tail, 0 means no limit", parseSize)
	grep := flagSet.String("grep", "", "Only print lines matching this `pattern`, smart case")
	number := flagSet.Bool("number", false, "Prefix lines with their line numbers")
	stats := flagSet.Bool("stats", false, "Print line statistics to stderr when done")
	spoolDir := flagSet.String("spool-dir", "", "Where to put decompressed and piped input, defaults to the XDG cache directory")
	maxSpool := flagSetFunc(flagSet, "max-spool", 0,
		"Max `size` of decompressed or piped input, 0 means no limit", parseSize)

	// Combine flags from environment and from command line
	flags := args[1:]
	envFlags := strings.TrimSpace(os.Getenv(envVarName))
	if len(envFlags) > 0 {
		flags = append(strings.Fields(envFlags), flags...)
	}

	err := flagSet.Parse(flags)
	if err != nil {
		if err == flag.ErrHelp {
			printUsage(env.stdout, flagSet)
			return false, nil
		}

		errorText := err.Error()
		if strings.HasPrefix(errorText, "invalid value") {
			errorText = strings.Replace(errorText, ": ", "\n\n", 1)
		}
		return false, fmt.Errorf("%s\n\nFor help, run: linecat --help", errorText)
	}

	logsRequested := *debugFlag || *trace

	if *printVersion {
		fmt.Fprintln(env.stdout, getVersion())
		return logsRequested, nil
	}

	log.SetLevel(log.InfoLevel)
	if *trace {
		log.SetLevel(log.TraceLevel)
	} else if *debugFlag {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.StampMicro,
	})

	flagSetArgs := flagSet.Args()
	if env.stdinIsRedirected && len(flagSetArgs) == 0 {
		// "-" is special if stdin is redirected, means "read from stdin"
		flagSetArgs = []string{"-"}
	}

	if len(flagSetArgs) == 0 {
		return logsRequested, fmt.Errorf("Filename(s) or input pipe required (\"linecat file.txt\")\n\nFor help, run: linecat --help")
	}

	// Check that all input files can be opened before printing anything
	for _, inputFilename := range flagSetArgs {
		if env.stdinIsRedirected && inputFilename == "-" {
			continue
		}

		err := source.TryOpen(inputFilename)
		if err != nil {
			return logsRequested, err
		}
	}

	opts := options{
		bufferSize: *bufferSize,
		tail:       *tail,
		allocator:  *allocator,
		maxMemory:  *maxMemory,
		filter:     search.For(*grep),
		number:     *number,
		stats:      *stats,
		highlight:  env.stdoutIsTerminal,
		spool: source.Options{
			SpoolDir:      *spoolDir,
			MaxSpoolBytes: int64(*maxSpool),
		},
	}
	log.Debugf("Options: %+v", opts)

	return logsRequested, printFiles(flagSetArgs, opts, env)
}

// Prints all files, continuing with the next file if one fails
func printFiles(filenames []string, opts options, env environment) error {
	// One buffer, shared by all files
	buffer := make([]byte, opts.bufferSize)

	output := bufio.NewWriter(env.stdout)
	defer output.Flush()

	var errs []error
	stdinDone := false
	for _, filename := range filenames {
		var file *source.File
		var err error
		if env.stdinIsRedirected && filename == "-" {
			if stdinDone {
				// stdin already drained, don't do it again
				continue
			}
			stdinDone = true
			file, err = source.Spool(filename, env.stdin, opts.spool)
		} else {
			file, err = source.Open(filename, opts.spool)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		printer := newLinePrinter(output, opts)
		if opts.tail > 0 {
			err = printer.printTail(file, buffer)
		} else {
			err = printer.printAll(file, buffer)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filename, explain(err)))
		}

		if closeErr := file.Close(); closeErr != nil {
			log.Warn("Closing ", filename, " failed: ", closeErr)
		}

		if opts.stats {
			printer.stats.print(env.stderr, filename)
		}
		log.Debugf("Done with %s: %d lines, %d bytes", filename, printer.stats.lines, printer.stats.bytes)
	}

	return errors.Join(errs...)
}

// Adds a hint on what to do about errors the user can do something about
func explain(err error) error {
	var tooSmall *lines.BufferTooSmallError
	if errors.As(err, &tooSmall) {
		return fmt.Errorf("%w, try a bigger --buffer-size", err)
	}

	var allocationError *lines.AllocationError
	if errors.As(err, &allocationError) && errors.Is(err, lines.ErrBudgetExceeded) {
		return fmt.Errorf("%w, try a bigger --max-memory", err)
	}

	return err
}

func main() {
	var loglines util.LogWriter
	logsRequested := false
	log.SetOutput(&loglines)
	source.SetLogger(&util.SourceLogger{})

	defer func() {
		err := recover()
		haveLogsToShow := len(loglines.String()) > 0 && logsRequested
		if err == nil && !haveLogsToShow {
			// No problems
			return
		}

		printProblemsHeader()

		if len(loglines.String()) > 0 {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "%s", loglines.String())
		}

		if err != nil {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "Panic recovery timestamp:", time.Now().String())
			fmt.Fprintln(os.Stderr)
			panic(err)
		}
	}()

	env := environment{
		stdin:             os.Stdin,
		stdout:            os.Stdout,
		stderr:            os.Stderr,
		stdinIsRedirected: !term.IsTerminal(int(os.Stdin.Fd())),
		stdoutIsTerminal:  term.IsTerminal(int(os.Stdout.Fd())),
	}

	_logsRequested, err := run(os.Args, env)
	logsRequested = _logsRequested
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)

		// Logs go out before we exit
		if logsRequested && len(loglines.String()) > 0 {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintf(os.Stderr, "%s", loglines.String())
		}
		os.Exit(1)
	}
}

// Define a generic flag with specified name, default value, and usage string.
// The return value is the address of a variable that stores the parsed value of
// the flag.
func flagSetFunc[T any](flagSet *flag.FlagSet, name string, defaultValue T, usage string, parser func(valueString string) (T, error)) *T {
	parsed := defaultValue

	flagSet.Func(name, usage, func(valueString string) error {
		parseResult, err := parser(valueString)
		if err != nil {
			return err
		}
		parsed = parseResult
		return nil
	})

	return &parsed
}
