// Package walk enumerates the regular files under a root path, depth first, one
// file at a time.
//
// # Root policy
//
// The root is always resolved with os.Stat, so a symlinked root is followed even
// when Options.FollowSymlinks is false. FollowSymlinks only governs entries found
// while descending. A root that is neither a regular file nor a directory (a FIFO,
// socket or device) is yielded once as if it were a regular file. The same kind of
// entry found inside a directory is skipped.
//
// # Resources
//
// Each level of the current descent path holds exactly one open directory handle
// and a small fixed batch of unread entries. Memory therefore grows with tree
// depth, not with the number of siblings or files. Close releases every handle;
// callers that stop early must call it.
package walk

import (
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// direntBatch is the number of entries requested from the OS per listing call.
const direntBatch = 64

// Options configures a Walker.
type Options struct {
	// FollowSymlinks resolves symlinks found during traversal and classifies
	// them by their target. When false they are skipped.
	FollowSymlinks bool
}

// frame is one level of directory enumeration. frames[i] owns frames[i+1].
type frame struct {
	path    string
	dir     *os.File
	info    fs.FileInfo
	pending []fs.DirEntry
	done    bool
}

func (f *frame) close() {
	if f.dir != nil {
		f.dir.Close()
		f.dir = nil
	}
	f.pending = nil
}

// Walker yields regular file paths under a root. It is not safe for concurrent
// use and cannot be restarted.
type Walker struct {
	opts   Options
	single string
	frames []*frame
	closed bool
}

// New classifies root and prepares a walk over it. A root that cannot be
// inspected or opened is returned as an *Error of KindRoot.
func New(root string, opts Options) (*Walker, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, newError(KindRoot, root, err)
	}

	w := &Walker{opts: opts}
	if !info.IsDir() {
		w.single = root
		return w, nil
	}

	dir, err := os.Open(root)
	if err != nil {
		return nil, newError(KindRoot, root, err)
	}
	w.frames = []*frame{{path: root, dir: dir, info: info}}
	return w, nil
}

// Next returns the path of the next regular file. It returns io.EOF when the walk
// is complete. Any other error is an *Error describing a single node; the walk
// stays usable and the next call continues after that node.
func (w *Walker) Next() (string, error) {
	if w.closed {
		return "", io.EOF
	}
	if w.single != "" {
		path := w.single
		w.single = ""
		w.closed = true
		return path, nil
	}

	for len(w.frames) > 0 {
		top := w.frames[len(w.frames)-1]

		entry, err := w.pull(top)
		if err != nil {
			w.pop()
			return "", newError(KindListDir, top.path, err)
		}
		if entry == nil {
			w.pop()
			continue
		}

		path := filepath.Join(top.path, entry.Name())
		kind, info, err := w.classify(path, entry)
		if err != nil {
			return "", newError(KindMetadata, path, err)
		}

		switch kind {
		case kindFile:
			return path, nil
		case kindDir:
			if err := w.push(path, info); err != nil {
				return "", err
			}
		}
	}

	w.closed = true
	return "", io.EOF
}

// Close releases all open directory handles. It is safe to call more than once.
func (w *Walker) Close() error {
	for len(w.frames) > 0 {
		w.pop()
	}
	w.single = ""
	w.closed = true
	return nil
}

// All returns an iterator over the remaining items. Per-node errors are yielded
// with an empty path. Breaking out of the loop closes the walker.
func (w *Walker) All() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer w.Close()
		for {
			path, err := w.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(path, err) {
				return
			}
		}
	}
}

// Depth returns the number of directory frames currently open.
func (w *Walker) Depth() int {
	return len(w.frames)
}

// pull returns the next entry of f, or nil when f is exhausted.
func (w *Walker) pull(f *frame) (fs.DirEntry, error) {
	if len(f.pending) == 0 {
		if f.done {
			return nil, nil
		}
		entries, err := f.dir.ReadDir(direntBatch)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		if len(entries) == 0 {
			f.done = true
			return nil, nil
		}
		f.pending = entries
	}

	entry := f.pending[0]
	f.pending[0] = nil
	f.pending = f.pending[1:]
	return entry, nil
}

func (w *Walker) push(path string, info fs.FileInfo) error {
	if w.opts.FollowSymlinks && info != nil {
		for _, f := range w.frames {
			if os.SameFile(f.info, info) {
				return newError(KindLoop, path, ErrLoop)
			}
		}
	}

	dir, err := os.Open(path)
	if err != nil {
		return newError(KindListDir, path, err)
	}
	w.frames = append(w.frames, &frame{path: path, dir: dir, info: info})
	return nil
}

func (w *Walker) pop() {
	n := len(w.frames) - 1
	w.frames[n].close()
	w.frames[n] = nil
	w.frames = w.frames[:n]
}
