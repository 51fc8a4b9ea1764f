package walk

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain consumes w and returns the sorted file paths, the errors and the highest
// number of simultaneously open directory frames.
func drain(t *testing.T, w *Walker) ([]string, []*Error, int) {
	t.Helper()
	var files []string
	var errs []*Error
	maxDepth := w.Depth()
	for {
		path, err := w.Next()
		if d := w.Depth(); d > maxDepth {
			maxDepth = d
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var werr *Error
			require.ErrorAs(t, err, &werr)
			errs = append(errs, werr)
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, errs, maxDepth
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWalkSingleFileRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "only.txt")
	writeFile(t, file, "x")

	for _, follow := range []bool{false, true} {
		t.Run(fmt.Sprintf("follow=%v", follow), func(t *testing.T) {
			w, err := New(file, Options{FollowSymlinks: follow})
			require.NoError(t, err)
			defer w.Close()

			files, errs, _ := drain(t, w)
			assert.Equal(t, []string{file}, files)
			assert.Empty(t, errs)
		})
	}
}

func TestWalkSymlinkedRootIsAlwaysResolved(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	writeFile(t, filepath.Join(target, "a.txt"), "a")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(target, link))

	w, err := New(link, Options{FollowSymlinks: false})
	require.NoError(t, err)
	defer w.Close()

	files, errs, _ := drain(t, w)
	assert.Equal(t, []string{filepath.Join(link, "a.txt")}, files)
	assert.Empty(t, errs)
}

func TestWalkEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"a", "a/b", "a/b/c", "d", "e/f"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0755))
	}

	w, err := New(root, Options{})
	require.NoError(t, err)
	defer w.Close()

	files, errs, _ := drain(t, w)
	assert.Empty(t, files)
	assert.Empty(t, errs)
}

func TestWalkDepthBoundedHandles(t *testing.T) {
	const depth, width = 6, 5
	root := t.TempDir()

	var want []string
	dir := root
	for level := 1; level <= depth; level++ {
		for i := 0; i < width; i++ {
			path := filepath.Join(dir, fmt.Sprintf("file-%d-%d.txt", level, i))
			writeFile(t, path, "x")
			want = append(want, path)
		}
		dir = filepath.Join(dir, fmt.Sprintf("level%d", level))
	}
	sort.Strings(want)

	w, err := New(root, Options{})
	require.NoError(t, err)
	defer w.Close()

	files, errs, maxDepth := drain(t, w)
	assert.Equal(t, want, files)
	assert.Len(t, files, depth*width)
	assert.Empty(t, errs)
	assert.LessOrEqual(t, maxDepth, depth+1)
}

func TestWalkManySiblings(t *testing.T) {
	root := t.TempDir()
	const n = 3*direntBatch + 7
	for i := 0; i < n; i++ {
		writeFile(t, filepath.Join(root, fmt.Sprintf("f%03d", i)), "")
	}

	w, err := New(root, Options{})
	require.NoError(t, err)
	defer w.Close()

	files, errs, maxDepth := drain(t, w)
	assert.Len(t, files, n)
	assert.Empty(t, errs)
	assert.Equal(t, 1, maxDepth)
}

func TestWalkSymlinkPolicy(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(root, "plain.txt"), "p")
	writeFile(t, filepath.Join(outside, "target.txt"), "t")
	writeFile(t, filepath.Join(outside, "sub", "deep.txt"), "d")
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "sub"), filepath.Join(root, "dir-link")))

	t.Run("not followed", func(t *testing.T) {
		w, err := New(root, Options{FollowSymlinks: false})
		require.NoError(t, err)
		defer w.Close()

		files, errs, _ := drain(t, w)
		assert.Equal(t, []string{filepath.Join(root, "plain.txt")}, files)
		assert.Empty(t, errs)
	})

	t.Run("followed", func(t *testing.T) {
		w, err := New(root, Options{FollowSymlinks: true})
		require.NoError(t, err)
		defer w.Close()

		files, errs, _ := drain(t, w)
		assert.Equal(t, []string{
			filepath.Join(root, "dir-link", "deep.txt"),
			filepath.Join(root, "file-link"),
			filepath.Join(root, "plain.txt"),
		}, files)
		assert.Empty(t, errs)
	})
}

func TestWalkBrokenSymlink(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	broken := filepath.Join(root, "broken")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), broken))

	t.Run("followed reports one metadata error", func(t *testing.T) {
		w, err := New(root, Options{FollowSymlinks: true})
		require.NoError(t, err)
		defer w.Close()

		files, errs, _ := drain(t, w)
		assert.Len(t, files, 2)
		require.Len(t, errs, 1)
		assert.Equal(t, KindMetadata, errs[0].Kind)
		assert.Equal(t, broken, errs[0].Path)
		assert.ErrorIs(t, errs[0], os.ErrNotExist)
	})

	t.Run("not followed is silently skipped", func(t *testing.T) {
		w, err := New(root, Options{FollowSymlinks: false})
		require.NoError(t, err)
		defer w.Close()

		files, errs, _ := drain(t, w)
		assert.Len(t, files, 2)
		assert.Empty(t, errs)
	})
}

func TestWalkSymlinkLoop(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "sub", "a.txt"), "a")
	loop := filepath.Join(root, "sub", "up")
	require.NoError(t, os.Symlink(root, loop))

	w, err := New(root, Options{FollowSymlinks: true})
	require.NoError(t, err)
	defer w.Close()

	files, errs, _ := drain(t, w)
	assert.Equal(t, []string{filepath.Join(root, "sub", "a.txt")}, files)
	require.Len(t, errs, 1)
	assert.Equal(t, KindLoop, errs[0].Kind)
	assert.Equal(t, loop, errs[0].Path)
	assert.ErrorIs(t, errs[0], ErrLoop)
}

func TestWalkUnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	for _, d := range []string{"one", "two", "three"} {
		writeFile(t, filepath.Join(root, d, "f.txt"), d)
	}
	locked := filepath.Join(root, "two")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	w, err := New(root, Options{})
	require.NoError(t, err)
	defer w.Close()

	files, errs, _ := drain(t, w)
	assert.Equal(t, []string{
		filepath.Join(root, "one", "f.txt"),
		filepath.Join(root, "three", "f.txt"),
	}, files)
	require.Len(t, errs, 1)
	assert.Equal(t, KindListDir, errs[0].Kind)
	assert.Equal(t, locked, errs[0].Path)
	assert.ErrorIs(t, errs[0], os.ErrPermission)
}

func TestWalkMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	w, err := New(missing, Options{})
	assert.Nil(t, w)

	var werr *Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, KindRoot, werr.Kind)
	assert.Equal(t, missing, werr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkCloseReleasesFrames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "c", "deep.txt"), "x")
	writeFile(t, filepath.Join(root, "a", "b", "c", "deeper.txt"), "x")

	w, err := New(root, Options{})
	require.NoError(t, err)

	_, err = w.Next()
	require.NoError(t, err)
	assert.Equal(t, 4, w.Depth())

	require.NoError(t, w.Close())
	assert.Equal(t, 0, w.Depth())

	_, err = w.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, w.Close())
}

func TestWalkAllBreakCloses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "x", "1.txt"), "1")
	writeFile(t, filepath.Join(root, "x", "2.txt"), "2")

	w, err := New(root, Options{})
	require.NoError(t, err)

	count := 0
	for path, err := range w.All() {
		require.NoError(t, err)
		assert.NotEmpty(t, path)
		count++
		break
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, w.Depth())
}

func TestErrorFormatting(t *testing.T) {
	err := newError(KindMetadata, "/r/x", os.ErrPermission)
	assert.Equal(t, "/r/x: permission denied", err.Error())
	assert.Equal(t, "metadata", err.Kind.String())
}
