package search

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ErrorSink receives per-path failures. Report must not fail or panic.
type ErrorSink interface {
	Report(path string, err error)
}

// ErrorSinkFunc adapts a function to the ErrorSink interface.
type ErrorSinkFunc func(path string, err error)

// Report calls f(path, err).
func (f ErrorSinkFunc) Report(path string, err error) {
	f(path, err)
}

// WriterSink prints failures as "<prog>: <path>: <err>" lines.
type WriterSink struct {
	w     io.Writer
	prog  string
	label *color.Color
	mu    sync.Mutex
}

// NewWriterSink creates a WriterSink. With useColor the program prefix is red.
func NewWriterSink(w io.Writer, prog string, useColor bool) *WriterSink {
	label := color.New(color.FgRed)
	if useColor {
		label.EnableColor()
	} else {
		label.DisableColor()
	}
	return &WriterSink{w: w, prog: prog, label: label}
}

// Report writes one line. Write failures are ignored.
func (s *WriterSink) Report(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.w, "%s: %s: %v\n", s.label.Sprint(s.prog), path, err)
}
