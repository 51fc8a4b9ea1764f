package search

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Printer receives everything the engine writes to the output sink. The engine
// calls Begin exactly once per file, before that file's first Match or Binary.
// Any error returned by a Printer is fatal to the run.
type Printer interface {
	Begin(path string) error
	Match(path string, lineNumber int, line []byte) error
	Binary(path string, offset int64) error
	// Flush is called after each file.
	Flush() error
}

// binaryNotice is printed in place of further lines once a NUL byte is seen.
const binaryNotice = "binary file matches (found \"\\0\" byte around offset %d)\n"

// TextPrinter writes the grep-style text format:
//
//	<path>
//	<line number>:<raw line>
//
// With color enabled the path and line number are highlighted.
type TextPrinter struct {
	w      *bufio.Writer
	path   *color.Color
	number *color.Color
	notice *color.Color
}

// NewTextPrinter creates a TextPrinter writing to w.
func NewTextPrinter(w io.Writer, useColor bool) *TextPrinter {
	p := &TextPrinter{
		w:      bufio.NewWriter(w),
		path:   color.New(color.FgMagenta, color.Bold),
		number: color.New(color.FgGreen),
		notice: color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.path, p.number, p.notice} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Begin prints the file header.
func (p *TextPrinter) Begin(path string) error {
	_, err := p.path.Fprintln(p.w, path)
	return err
}

// Match prints one matching line.
func (p *TextPrinter) Match(path string, lineNumber int, line []byte) error {
	if _, err := p.number.Fprintf(p.w, "%d", lineNumber); err != nil {
		return err
	}
	if err := p.w.WriteByte(':'); err != nil {
		return err
	}
	if _, err := p.w.Write(line); err != nil {
		return err
	}
	return p.w.WriteByte('\n')
}

// Binary prints the binary-file notice.
func (p *TextPrinter) Binary(path string, offset int64) error {
	_, err := p.notice.Fprintf(p.w, binaryNotice, offset)
	return err
}

// Flush writes buffered output.
func (p *TextPrinter) Flush() error {
	return p.w.Flush()
}

// jsonEvent is one line of JSON output.
type jsonEvent struct {
	Type       string `json:"type"`
	Path       string `json:"path"`
	LineNumber int    `json:"line_number,omitempty"`
	Text       string `json:"text,omitempty"`
	Bytes      []byte `json:"bytes,omitempty"`
	Offset     *int64 `json:"offset,omitempty"`
}

// JSONPrinter writes one JSON object per line. Lines that are not valid UTF-8 are
// emitted base64-encoded under "bytes" instead of "text".
type JSONPrinter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONPrinter creates a JSONPrinter writing to w.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	bw := bufio.NewWriter(w)
	return &JSONPrinter{w: bw, enc: json.NewEncoder(bw)}
}

func (p *JSONPrinter) Begin(path string) error {
	return p.encode(jsonEvent{Type: "begin", Path: path})
}

func (p *JSONPrinter) Match(path string, lineNumber int, line []byte) error {
	ev := jsonEvent{Type: "match", Path: path, LineNumber: lineNumber}
	if utf8.Valid(line) {
		ev.Text = string(line)
	} else {
		ev.Bytes = line
	}
	return p.encode(ev)
}

func (p *JSONPrinter) Binary(path string, offset int64) error {
	return p.encode(jsonEvent{Type: "binary", Path: path, Offset: &offset})
}

func (p *JSONPrinter) Flush() error {
	return p.w.Flush()
}

func (p *JSONPrinter) encode(ev jsonEvent) error {
	if err := p.enc.Encode(ev); err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return nil
}
