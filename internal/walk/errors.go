package walk

import (
	"errors"
	"fmt"
)

// ErrLoop is the cause of a KindLoop error.
var ErrLoop = errors.New("filesystem loop detected")

// Kind classifies where a walk failure happened.
type Kind uint8

const (
	// KindRoot means the root itself could not be inspected or opened.
	KindRoot Kind = iota
	// KindListDir means a directory could not be opened or its listing failed
	// part way. The remaining entries of that directory are abandoned.
	KindListDir
	// KindMetadata means one entry could not be classified and was skipped.
	KindMetadata
	// KindLoop means a followed symlink led back to a directory already on the
	// current descent path.
	KindLoop
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindListDir:
		return "list directory"
	case KindMetadata:
		return "metadata"
	case KindLoop:
		return "loop"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error reports a failure on a single path.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func newError(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
