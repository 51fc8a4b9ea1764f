// Package lines splits a byte stream into line records.
//
// A record ends at the first LF, CR, CRLF or NUL byte. Content never includes the
// delimiter. A NUL byte is treated as a binary-content signal: the record it ends is
// the last one the Segmenter produces.
package lines

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"
)

// DefaultBufferSize is the refill chunk size used by NewSegmenter.
const DefaultBufferSize = 64 * 1024

// minBufferSize mirrors bufio's own lower bound.
const minBufferSize = 16

// delimiters holds every byte that can end a record.
const delimiters = "\x00\n\r"

// Delimiter identifies the byte sequence that terminated a record.
type Delimiter uint8

const (
	// None marks a trailing record that ran into end of input.
	None Delimiter = iota
	LF
	CR
	CRLF
	NUL
)

// String returns the conventional name of the delimiter.
func (d Delimiter) String() string {
	switch d {
	case LF:
		return "LF"
	case CR:
		return "CR"
	case CRLF:
		return "CRLF"
	case NUL:
		return "NUL"
	default:
		return "None"
	}
}

// Len returns the number of input bytes the delimiter occupies.
func (d Delimiter) Len() int {
	switch d {
	case LF, CR, NUL:
		return 1
	case CRLF:
		return 2
	default:
		return 0
	}
}

// Record is one line of input.
type Record struct {
	// Content is the line without its delimiter. It is only valid until the
	// next call to Next.
	Content []byte
	// Delim is the delimiter that ended the line.
	Delim Delimiter
	// Offset is the byte offset of the first content byte from the start of input.
	Offset int64
}

// Len returns the number of input bytes consumed by the record.
func (r Record) Len() int {
	return len(r.Content) + r.Delim.Len()
}

// DelimOffset returns the byte offset of the delimiter.
func (r Record) DelimOffset() int64 {
	return r.Offset + int64(len(r.Content))
}

// Segmenter produces records from a reader one at a time.
// It is not safe for concurrent use.
type Segmenter struct {
	r      *bufio.Reader
	line   []byte
	offset int64
	err    error
}

// NewSegmenter returns a Segmenter reading r in DefaultBufferSize chunks.
func NewSegmenter(r io.Reader) *Segmenter {
	return NewSegmenterSize(r, DefaultBufferSize)
}

// NewSegmenterSize returns a Segmenter reading r in chunks of size bytes.
// Sizes below 16 are raised to 16.
func NewSegmenterSize(r io.Reader, size int) *Segmenter {
	if size < minBufferSize {
		size = minBufferSize
	}
	return &Segmenter{r: bufio.NewReaderSize(r, size)}
}

// Offset returns the number of input bytes consumed so far.
func (s *Segmenter) Offset() int64 {
	return s.offset
}

// Next returns the next record. It returns io.EOF once input is exhausted or a
// NUL-delimited record has been returned. Any other error comes from the
// underlying reader; content accumulated for the failed record is dropped and the
// same error is returned from every later call.
func (s *Segmenter) Next() (Record, error) {
	if s.err != nil {
		return Record{}, s.err
	}

	s.line = s.line[:0]
	start := s.offset

	for {
		data, err := s.fill()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.line = s.line[:0]
				s.err = err
				return Record{}, err
			}
			s.err = io.EOF
			if len(s.line) == 0 {
				return Record{}, io.EOF
			}
			s.offset += int64(len(s.line))
			return Record{Content: s.line, Delim: None, Offset: start}, nil
		}

		i := bytes.IndexAny(data, delimiters)
		if i < 0 {
			s.line = append(s.line, data...)
			s.consume(len(data))
			continue
		}

		s.line = append(s.line, data[:i]...)
		delim := classify(data[i])
		s.consume(i + 1)

		if delim == CR {
			next, err := s.r.Peek(1)
			switch {
			case err == nil && next[0] == '\n':
				s.consume(1)
				delim = CRLF
			case err != nil && !errors.Is(err, io.EOF):
				s.line = s.line[:0]
				s.err = err
				return Record{}, err
			}
		}

		s.offset += int64(len(s.line) + delim.Len())
		if delim == NUL {
			s.err = io.EOF
		}
		return Record{Content: s.line, Delim: delim, Offset: start}, nil
	}
}

// All returns an iterator over the remaining records. Iteration stops after the
// first error, which is yielded with a zero Record; io.EOF is not yielded.
func (s *Segmenter) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// fill returns the buffered bytes, reading another chunk when the buffer is empty.
// Unconsumed bytes are never discarded by a refill.
func (s *Segmenter) fill() ([]byte, error) {
	if s.r.Buffered() == 0 {
		if _, err := s.r.Peek(1); err != nil {
			return nil, err
		}
	}
	return s.r.Peek(s.r.Buffered())
}

func (s *Segmenter) consume(n int) {
	// Discard cannot fail for n <= Buffered.
	_, _ = s.r.Discard(n)
}

func classify(b byte) Delimiter {
	switch b {
	case '\n':
		return LF
	case '\r':
		return CR
	default:
		return NUL
	}
}
