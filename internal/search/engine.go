// Package search composes the tree walker and the line segmenter into a grep-like
// search.
//
// Every file yielded by the walker is segmented into lines, and each line is tested
// by an externally supplied Matcher. Matches go to a Printer; failures on individual
// paths go to an ErrorSink and never stop the run. Only a Printer failure is fatal.
package search

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/harrison/ygrep/internal/lines"
	"github.com/harrison/ygrep/internal/walk"
)

// Logger receives diagnostic messages from the engine.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogWarn(message string)
}

type nopLogger struct{}

func (nopLogger) LogTrace(string) {}
func (nopLogger) LogDebug(string) {}
func (nopLogger) LogWarn(string)  {}

// Options configures an Engine.
type Options struct {
	// FollowSymlinks is passed to the walker for entries below each root.
	FollowSymlinks bool
	// BufferSize is the segmenter refill size; zero means lines.DefaultBufferSize.
	BufferSize int
	// Logger receives diagnostics; nil discards them.
	Logger Logger
	// Skip, when set, is consulted for each file found by the walker. Files it
	// reports true for are not searched.
	Skip func(path string) bool
}

// OutputError wraps a Printer failure. It aborts the whole run.
type OutputError struct {
	Err error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("write output: %v", e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

// FileResult describes the search of a single file.
type FileResult struct {
	Path    string
	Matches int
	Binary  bool
	// BinaryOffset is the offset of the first NUL byte when Binary is set.
	BinaryOffset int64
	Bytes        int64
}

// Summary accumulates results across a run.
type Summary struct {
	Files        int
	FilesMatched int
	Matches      int
	Binary       int
	Bytes        int64
	Errors       int
}

// HadErrors reports whether any path failed during the run.
func (s Summary) HadErrors() bool {
	return s.Errors > 0
}

// Add merges a file result into the summary.
func (s *Summary) Add(r FileResult) {
	s.Files++
	s.Matches += r.Matches
	s.Bytes += r.Bytes
	if r.Matches > 0 || r.Binary {
		s.FilesMatched++
	}
	if r.Binary {
		s.Binary++
	}
}

// Merge adds the counters of other to s.
func (s *Summary) Merge(other Summary) {
	s.Files += other.Files
	s.FilesMatched += other.FilesMatched
	s.Matches += other.Matches
	s.Binary += other.Binary
	s.Bytes += other.Bytes
	s.Errors += other.Errors
}

// Engine runs searches. An Engine is single-threaded; it is not safe for
// concurrent use.
type Engine struct {
	matcher Matcher
	printer Printer
	sink    ErrorSink
	opts    Options
	log     Logger
}

// New creates an Engine.
func New(matcher Matcher, printer Printer, sink ErrorSink, opts Options) *Engine {
	if opts.BufferSize <= 0 {
		opts.BufferSize = lines.DefaultBufferSize
	}
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		matcher: matcher,
		printer: printer,
		sink:    sink,
		opts:    opts,
		log:     log,
	}
}

// SearchPath searches every regular file under root. Per-path failures are sent
// to the ErrorSink and counted in the summary. The returned error is non-nil only
// when output could not be written, in which case the run stops immediately.
func (e *Engine) SearchPath(root string) (Summary, error) {
	var sum Summary

	w, err := walk.New(root, walk.Options{FollowSymlinks: e.opts.FollowSymlinks})
	if err != nil {
		e.report(&sum, err)
		return sum, nil
	}
	defer w.Close()

	for {
		path, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.report(&sum, err)
			continue
		}

		if e.opts.Skip != nil && e.opts.Skip(path) {
			e.log.LogDebug(fmt.Sprintf("skipping %s", path))
			continue
		}

		res, err := e.SearchFile(path)
		var outErr *OutputError
		if errors.As(err, &outErr) {
			return sum, err
		}
		if err != nil {
			e.log.LogDebug(fmt.Sprintf("file error on %s: %v", path, err))
			e.reportPath(&sum, path, err)
			continue
		}
		sum.Add(res)
	}

	e.log.LogDebug(fmt.Sprintf("%s: searched %d files, %d matches, %d errors", root, sum.Files, sum.Matches, sum.Errors))
	return sum, nil
}

// SearchInput searches r as a single input labelled name, such as standard
// input. Errors are classified as in SearchPath: a read failure is reported and
// counted, while an output failure is returned.
func (e *Engine) SearchInput(r io.Reader, name string) (Summary, error) {
	var sum Summary

	res, err := e.SearchReader(r, name)
	var outErr *OutputError
	if errors.As(err, &outErr) {
		return sum, err
	}
	if err != nil {
		e.reportPath(&sum, name, err)
		return sum, nil
	}
	sum.Add(res)
	return sum, nil
}

// SearchFile opens and searches a single file.
func (e *Engine) SearchFile(path string) (FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{Path: path}, err
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && !info.Mode().IsRegular() {
		e.log.LogWarn(fmt.Sprintf("reading special file %s as a regular file", path))
	}

	return e.SearchReader(f, path)
}

// SearchReader searches r, labelling output with name. A read error abandons the
// rest of r and is returned unwrapped.
func (e *Engine) SearchReader(r io.Reader, name string) (FileResult, error) {
	res := FileResult{Path: name}
	seg := lines.NewSegmenterSize(r, e.opts.BufferSize)
	begun := false

	begin := func() error {
		if begun {
			return nil
		}
		begun = true
		return e.printer.Begin(name)
	}

	lineNumber := 0
	for {
		rec, err := seg.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Bytes = seg.Offset()
			return res, e.flush(err)
		}
		lineNumber++

		if rec.Delim == lines.NUL {
			res.Binary = true
			res.BinaryOffset = rec.DelimOffset()
			e.log.LogTrace(fmt.Sprintf("%s: NUL byte at offset %d, treating as binary", name, res.BinaryOffset))
			if err := begin(); err != nil {
				return res, &OutputError{Err: err}
			}
			if err := e.printer.Binary(name, res.BinaryOffset); err != nil {
				return res, &OutputError{Err: err}
			}
			break
		}

		if !e.matcher.Match(rec.Content) {
			continue
		}
		res.Matches++
		if err := begin(); err != nil {
			return res, &OutputError{Err: err}
		}
		if err := e.printer.Match(name, lineNumber, rec.Content); err != nil {
			return res, &OutputError{Err: err}
		}
	}

	res.Bytes = seg.Offset()
	return res, e.flush(nil)
}

// flush flushes the printer after a file. A flush failure takes precedence over
// readErr since it is fatal.
func (e *Engine) flush(readErr error) error {
	if err := e.printer.Flush(); err != nil {
		return &OutputError{Err: err}
	}
	return readErr
}

// report forwards a walk failure to the sink and counts it.
func (e *Engine) report(sum *Summary, err error) {
	var werr *walk.Error
	if errors.As(err, &werr) {
		e.log.LogDebug(fmt.Sprintf("%s error on %s: %v", werr.Kind, werr.Path, werr.Err))
		e.reportPath(sum, werr.Path, werr.Err)
		return
	}
	e.reportPath(sum, "", err)
}

// reportPath strips the operation and path already carried by an *fs.PathError,
// since the sink prints the path itself.
func (e *Engine) reportPath(sum *Summary, path string, err error) {
	sum.Errors++
	var perr *fs.PathError
	if errors.As(err, &perr) {
		err = perr.Err
	}
	e.sink.Report(path, err)
}
